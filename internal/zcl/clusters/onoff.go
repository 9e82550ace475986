package clusters

import "zigbee-coop-door/internal/zcl"

// AttrOnOff is the On/Off cluster's state attribute.
const AttrOnOff uint16 = 0x0000

var OnOff = zcl.ClusterDef{
	ID:   0x0006,
	Name: "On/Off",
	Attributes: []zcl.AttributeDef{
		{ID: AttrOnOff, Name: "OnOff", Type: zcl.TypeBool, Access: zcl.AccessRead | zcl.AccessWrite | zcl.AccessReport},
	},
	Commands: []zcl.CommandDef{
		{ID: 0x00, Name: "Off"},
		{ID: 0x01, Name: "On"},
		{ID: 0x02, Name: "Toggle"},
	},
}
