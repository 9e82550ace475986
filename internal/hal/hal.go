package hal

// Pin is a single digital output line. Pin writes are infallible by
// contract: on this class of hardware a failed pin write is unrecoverable,
// so the interface carries no error returns.
type Pin interface {
	Set()
	Clear()
}

// ButtonFunc receives raw button transitions: state is the current level
// bitmask, changed marks the buttons that moved since the previous report.
type ButtonFunc func(state, changed uint32)

// GPIO is the platform abstraction the control core runs on: numbered
// digital outputs plus a raw button event callback.
type GPIO interface {
	Pin(id uint8) Pin
	OnButton(fn ButtonFunc)
	Close() error
}

// PinMap maps a (port, pin) pair to a flat pin number, nRF-style.
func PinMap(port, pin uint8) uint8 {
	return port<<5 | pin&0x1F
}
