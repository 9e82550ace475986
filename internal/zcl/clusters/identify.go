package clusters

import "zigbee-coop-door/internal/zcl"

// AttrIdentifyTime is the Identify cluster's countdown attribute (seconds).
const AttrIdentifyTime uint16 = 0x0000

var Identify = zcl.ClusterDef{
	ID:   0x0003,
	Name: "Identify",
	Attributes: []zcl.AttributeDef{
		{ID: AttrIdentifyTime, Name: "IdentifyTime", Type: zcl.TypeUint16, Access: zcl.AccessRead | zcl.AccessWrite},
	},
	Commands: []zcl.CommandDef{
		{ID: 0x00, Name: "Identify"},
		{ID: 0x01, Name: "IdentifyQuery"},
	},
}
