package device

import (
	"sync"
	"testing"
	"time"
)

func newTestFactoryReset(action func()) *FactoryReset {
	events := NewEventBus(testLogger())
	f := NewFactoryReset(testButtonMask, action, events, testLogger())
	f.hold = 10 * time.Millisecond
	return f
}

func TestFactoryResetLongHold(t *testing.T) {
	var mu sync.Mutex
	fired := false
	f := newTestFactoryReset(func() {
		mu.Lock()
		fired = true
		mu.Unlock()
	})

	f.Check(testButtonMask, testButtonMask) // press
	waitFor(t, time.Second, f.WasDone)

	mu.Lock()
	defer mu.Unlock()
	if !fired {
		t.Error("reset action not invoked")
	}
}

func TestFactoryResetShortHoldDisarms(t *testing.T) {
	f := newTestFactoryReset(func() {
		t.Error("reset action must not fire on a short hold")
	})

	f.Check(testButtonMask, testButtonMask) // press
	f.Check(0, testButtonMask)              // release before the threshold
	time.Sleep(30 * time.Millisecond)

	if f.WasDone() {
		t.Error("WasDone() = true after short hold")
	}
}

func TestFactoryResetDoneClearsOnNextPress(t *testing.T) {
	f := newTestFactoryReset(nil)

	f.Check(testButtonMask, testButtonMask)
	waitFor(t, time.Second, f.WasDone)
	f.Check(0, testButtonMask) // trailing release

	f.Check(testButtonMask, testButtonMask) // new hold begins
	if f.WasDone() {
		t.Error("WasDone() should reset at the start of a new hold")
	}
	f.Check(0, testButtonMask)
}

func TestFactoryResetIgnoresOtherButtons(t *testing.T) {
	f := newTestFactoryReset(func() {
		t.Error("reset action must not fire for other buttons")
	})

	f.Check(0x1, 0x1)
	time.Sleep(30 * time.Millisecond)
	if f.WasDone() {
		t.Error("WasDone() = true for an unmonitored button")
	}
}
