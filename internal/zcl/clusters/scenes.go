package clusters

import "zigbee-coop-door/internal/zcl"

var Scenes = zcl.ClusterDef{
	ID:   0x0005,
	Name: "Scenes",
	Attributes: []zcl.AttributeDef{
		{ID: 0x0000, Name: "SceneCount", Type: zcl.TypeUint8, Access: zcl.AccessRead},
		{ID: 0x0001, Name: "CurrentScene", Type: zcl.TypeUint8, Access: zcl.AccessRead},
		{ID: 0x0002, Name: "CurrentGroup", Type: zcl.TypeUint16, Access: zcl.AccessRead},
		{ID: 0x0003, Name: "SceneValid", Type: zcl.TypeBool, Access: zcl.AccessRead},
		{ID: 0x0004, Name: "NameSupport", Type: zcl.TypeBitmap8, Access: zcl.AccessRead},
	},
	Commands: []zcl.CommandDef{
		{ID: 0x00, Name: "AddScene"},
		{ID: 0x01, Name: "ViewScene"},
		{ID: 0x02, Name: "RemoveScene"},
		{ID: 0x03, Name: "RemoveAllScenes"},
		{ID: 0x04, Name: "StoreScene"},
		{ID: 0x05, Name: "RecallScene"},
	},
}
