package device

import "sync"

// Metadata holds the immutable manufacturer attributes of the Basic cluster.
// It is written once at startup and never mutated afterwards.
type Metadata struct {
	ZCLVersion       uint8  `json:"zcl_version"`
	AppVersion       uint8  `json:"app_version"`
	StackVersion     uint8  `json:"stack_version"`
	HWVersion        uint8  `json:"hw_version"`
	ManufacturerName string `json:"manufacturer_name"`
	ModelID          string `json:"model_id"`
	DateCode         string `json:"date_code"`
	PowerSource      uint8  `json:"power_source"`
	Location         string `json:"location"`
}

// Snapshot is the persisted slice of the mutable attribute state, restored
// at startup from the settings store.
type Snapshot struct {
	OnOff bool `json:"on_off"`
}

// AttributeStore owns the device's externally visible attribute state.
// Other components obtain mutation access only through its API.
type AttributeStore struct {
	mu           sync.RWMutex
	onOff        bool
	identifyTime uint16
	meta         Metadata
	sealed       bool
}

// NewAttributeStore creates an empty attribute store.
func NewAttributeStore() *AttributeStore {
	return &AttributeStore{}
}

// SetMetadata initializes the manufacturer metadata. It may be called once;
// any later write is rejected with ErrMetadataSealed.
func (s *AttributeStore) SetMetadata(meta Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return ErrMetadataSealed
	}
	s.meta = meta
	s.sealed = true
	return nil
}

// Metadata returns the manufacturer metadata.
func (s *AttributeStore) Metadata() Metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta
}

// SetOnOff sets the on/off attribute and reports whether the value actually
// changed, so callers can skip redundant actuation.
func (s *AttributeStore) SetOnOff(v bool) (changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.onOff == v {
		return false
	}
	s.onOff = v
	return true
}

// OnOff returns the on/off attribute.
func (s *AttributeStore) OnOff() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.onOff
}

// SetIdentifyTime sets the identify countdown in seconds.
func (s *AttributeStore) SetIdentifyTime(ticks uint16) {
	s.mu.Lock()
	s.identifyTime = ticks
	s.mu.Unlock()
}

// IdentifyTime returns the identify countdown. Zero means no active session.
func (s *AttributeStore) IdentifyTime() uint16 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identifyTime
}

// DecrementIdentifyTime decrements the identify countdown, saturating at 0,
// and returns the remaining value.
func (s *AttributeStore) DecrementIdentifyTime() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identifyTime > 0 {
		s.identifyTime--
	}
	return s.identifyTime
}

// Snapshot returns the persistable attribute state.
func (s *AttributeStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{OnOff: s.onOff}
}

// Restore applies a persisted snapshot. Used once at startup before the
// command path is live.
func (s *AttributeStore) Restore(snap Snapshot) {
	s.mu.Lock()
	s.onOff = snap.OnOff
	s.mu.Unlock()
}
