package device

import "errors"

var (
	// ErrUnhandled marks a write to a cluster/attribute pair this device does
	// not process. The caller reports it to the network layer as "not
	// implemented"; device state is untouched.
	ErrUnhandled = errors.New("unhandled cluster or attribute")

	// ErrInvalidState marks an operation requested in a state that cannot
	// serve it, e.g. entering identify mode while not joined to a network.
	ErrInvalidState = errors.New("invalid state")

	// ErrMetadataSealed is returned when manufacturer metadata is written
	// after initialization.
	ErrMetadataSealed = errors.New("metadata already initialized")
)
