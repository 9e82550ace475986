package device

import (
	"log/slog"
	"sync"
	"time"
)

// FactoryResetHold is how long the button must stay pressed to trigger a
// factory reset.
const FactoryResetHold = 5 * time.Second

// FactoryReset runs the long-press timer for the factory-reset button. When
// the hold threshold is reached it performs the reset action and remembers
// that fact for the rest of the hold, so the trailing release can be
// classified as already handled.
type FactoryReset struct {
	mask   uint32
	hold   time.Duration
	action func()
	events *EventBus
	logger *slog.Logger

	mu    sync.Mutex
	timer *time.Timer
	done  bool
}

// NewFactoryReset creates the collaborator for the button selected by mask.
// action performs the actual wipe (clear persisted settings, leave network);
// it runs on the timer goroutine.
func NewFactoryReset(mask uint32, action func(), events *EventBus, logger *slog.Logger) *FactoryReset {
	return &FactoryReset{
		mask:   mask,
		hold:   FactoryResetHold,
		action: action,
		events: events,
		logger: logger.With("component", "factoryreset"),
	}
}

// Check consumes the same raw (state, changed) reports as the button
// classifier and arms or disarms the long-press timer.
func (f *FactoryReset) Check(state, changed uint32) {
	if f.mask&changed == 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mask&state != 0 {
		// Pressed: a new hold begins.
		f.done = false
		f.timer = time.AfterFunc(f.hold, f.fire)
	} else if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}

// WasDone reports whether a factory reset fired during the current hold.
func (f *FactoryReset) WasDone() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

func (f *FactoryReset) fire() {
	f.mu.Lock()
	f.done = true
	f.timer = nil
	f.mu.Unlock()

	f.logger.Warn("factory reset triggered by long press")
	f.events.Emit(Event{Type: EventFactoryReset})
	if f.action != nil {
		f.action()
	}
}
