package zcl

// ZCL status codes reported back to the network layer.
const (
	StatusSuccess         uint8 = 0x00
	StatusFailure         uint8 = 0x01
	StatusNotImplemented  uint8 = 0x84
	StatusUnsupportedAttr uint8 = 0x86
	StatusInvalidValue    uint8 = 0x87
	StatusReadOnly        uint8 = 0x88
	StatusInvalidDataType uint8 = 0x8D
)

// Power source values for the Basic cluster PowerSource attribute
// (ZCL spec section 3.2.2.2.8).
const (
	PowerSourceUnknown  uint8 = 0x00
	PowerSourceMains    uint8 = 0x01
	PowerSourceBattery  uint8 = 0x03
	PowerSourceDCSource uint8 = 0x04
)
