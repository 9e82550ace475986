package zcl

// ZCL data type IDs used by the clusters this device serves.
const (
	TypeNoData  uint8 = 0x00
	TypeBool    uint8 = 0x10
	TypeBitmap8 uint8 = 0x18
	TypeUint8   uint8 = 0x20
	TypeUint16  uint8 = 0x21
	TypeEnum8   uint8 = 0x30
	TypeCharStr uint8 = 0x42
)

// TypeSize returns the fixed size in bytes of a ZCL type, or -1 for
// variable-length types.
func TypeSize(typeID uint8) int {
	switch typeID {
	case TypeNoData:
		return 0
	case TypeBool, TypeUint8, TypeEnum8, TypeBitmap8:
		return 1
	case TypeUint16:
		return 2
	case TypeCharStr:
		return -1 // 1-byte length prefix
	default:
		return -1
	}
}

// TypeName returns a human-readable name for a ZCL type.
func TypeName(typeID uint8) string {
	switch typeID {
	case TypeNoData:
		return "nodata"
	case TypeBool:
		return "bool"
	case TypeBitmap8:
		return "bitmap8"
	case TypeUint8:
		return "uint8"
	case TypeUint16:
		return "uint16"
	case TypeEnum8:
		return "enum8"
	case TypeCharStr:
		return "charstr"
	default:
		return "unknown"
	}
}
