package store

import (
	"errors"

	"zigbee-coop-door/internal/device"
)

// ErrNotFound is returned when a requested entity does not exist in the store.
var ErrNotFound = errors.New("not found")

// Store defines the settings persistence interface: it holds the mutable
// attribute snapshot restored at startup.
type Store interface {
	SaveAttributes(snap device.Snapshot) error
	GetAttributes() (device.Snapshot, error)

	// Wipe removes all persisted settings (factory reset).
	Wipe() error

	Close() error
}
