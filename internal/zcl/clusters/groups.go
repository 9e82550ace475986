package clusters

import "zigbee-coop-door/internal/zcl"

var Groups = zcl.ClusterDef{
	ID:   0x0004,
	Name: "Groups",
	Attributes: []zcl.AttributeDef{
		{ID: 0x0000, Name: "NameSupport", Type: zcl.TypeBitmap8, Access: zcl.AccessRead},
	},
	Commands: []zcl.CommandDef{
		{ID: 0x00, Name: "AddGroup"},
		{ID: 0x01, Name: "ViewGroup"},
		{ID: 0x02, Name: "GetGroupMembership"},
		{ID: 0x03, Name: "RemoveGroup"},
		{ID: 0x04, Name: "RemoveAllGroups"},
	},
}
