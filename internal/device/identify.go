package device

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"zigbee-coop-door/internal/hal"
)

const (
	// DefaultIdentifyTime is the countdown armed when identify mode is
	// toggled locally, in seconds.
	DefaultIdentifyTime uint16 = 30

	// BlinkPeriod is the identify LED toggle period.
	BlinkPeriod = 100 * time.Millisecond

	// ticksPerSecond is how many blink ticks make up one countdown second.
	ticksPerSecond = 10
)

// IdentifyController drives the identify blink output. A session is a
// self-perpetuating periodic task owned by the controller: it runs until
// explicitly cancelled or until the countdown reaches zero.
//
// Invariant: the identify-time attribute is greater than zero exactly while
// a session is active.
type IdentifyController struct {
	attrs  *AttributeStore
	led    hal.Pin
	events *EventBus
	joined func() bool
	logger *slog.Logger

	mu     sync.Mutex
	phase  bool
	ticks  int
	stop   chan struct{} // nil while inactive
	period time.Duration
}

// NewIdentifyController creates a controller over the identify LED line.
// joined reports whether the device is currently joined to a network; a nil
// func means "always joined".
func NewIdentifyController(attrs *AttributeStore, led hal.Pin, events *EventBus, joined func() bool, logger *slog.Logger) *IdentifyController {
	return &IdentifyController{
		attrs:  attrs,
		led:    led,
		events: events,
		joined: joined,
		logger: logger.With("component", "identify"),
		period: BlinkPeriod,
	}
}

// Start enters identify mode with the given countdown in seconds. Starting
// while already active re-arms the countdown at a full second and preserves
// the blink phase. Starting while not joined to a network returns
// ErrInvalidState.
func (c *IdentifyController) Start(seconds uint16) error {
	if c.joined != nil && !c.joined() {
		return fmt.Errorf("%w: not joined to a network", ErrInvalidState)
	}
	if seconds == 0 {
		c.Cancel()
		return nil
	}

	c.mu.Lock()
	if c.stop != nil {
		c.attrs.SetIdentifyTime(seconds)
		// Restart the countdown second, so the first decrement of the
		// re-armed session is never early.
		c.ticks = 0
		c.mu.Unlock()
		return nil
	}
	c.attrs.SetIdentifyTime(seconds)
	stop := make(chan struct{})
	c.stop = stop
	period := c.period
	c.mu.Unlock()

	go c.blinkLoop(stop, period)

	c.logger.Info("identify mode entered", "seconds", seconds)
	c.events.Emit(Event{Type: EventIdentify, Data: true})
	return nil
}

// Cancel leaves identify mode: the periodic task is descheduled, the LED is
// forced low, and the phase and countdown reset. Cancelling an inactive
// session is a no-op.
func (c *IdentifyController) Cancel() {
	c.mu.Lock()
	if c.stop == nil {
		c.mu.Unlock()
		return
	}
	close(c.stop)
	c.stop = nil
	c.phase = false
	c.ticks = 0
	c.led.Clear()
	c.attrs.SetIdentifyTime(0)
	c.mu.Unlock()

	c.logger.Info("identify mode cancelled")
	c.events.Emit(Event{Type: EventIdentify, Data: false})
}

// Active reports whether an identify session is running. This answers the
// network's identify query.
func (c *IdentifyController) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop != nil
}

// Toggle starts a session with the default countdown when inactive, and
// cancels the running session otherwise. This is the short-press intent.
func (c *IdentifyController) Toggle() error {
	if c.Active() {
		c.Cancel()
		return nil
	}
	return c.Start(DefaultIdentifyTime)
}

func (c *IdentifyController) blinkLoop(stop chan struct{}, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.tick(stop)
		}
	}
}

// tick flips the blink phase and counts the session down. One second of
// ticks decrements the identify-time attribute; reaching zero ends the
// session.
func (c *IdentifyController) tick(stop chan struct{}) {
	c.mu.Lock()
	if c.stop != stop {
		// Session was cancelled between the ticker firing and now.
		c.mu.Unlock()
		return
	}
	c.phase = !c.phase
	if c.phase {
		c.led.Set()
	} else {
		c.led.Clear()
	}
	c.ticks++
	expired := false
	if c.ticks%ticksPerSecond == 0 {
		expired = c.attrs.DecrementIdentifyTime() == 0
	}
	c.mu.Unlock()

	if expired {
		c.logger.Info("identify countdown expired")
		c.Cancel()
	}
}
