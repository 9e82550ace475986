package store

import (
	"errors"
	"path/filepath"
	"testing"

	"zigbee-coop-door/internal/device"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := NewBoltStore(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGetAttributes(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveAttributes(device.Snapshot{OnOff: true}); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetAttributes()
	if err != nil {
		t.Fatal(err)
	}
	if !got.OnOff {
		t.Error("on_off = false, want true")
	}
}

func TestGetAttributesFirstBoot(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetAttributes()
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveAttributesOverwrites(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveAttributes(device.Snapshot{OnOff: true}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveAttributes(device.Snapshot{OnOff: false}); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetAttributes()
	if err != nil {
		t.Fatal(err)
	}
	if got.OnOff {
		t.Error("on_off = true, want false after overwrite")
	}
}

func TestWipe(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveAttributes(device.Snapshot{OnOff: true}); err != nil {
		t.Fatal(err)
	}
	if err := s.Wipe(); err != nil {
		t.Fatal(err)
	}

	_, err := s.GetAttributes()
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err after wipe = %v, want ErrNotFound", err)
	}

	// Store stays usable after a wipe.
	if err := s.SaveAttributes(device.Snapshot{OnOff: false}); err != nil {
		t.Fatal(err)
	}
}
