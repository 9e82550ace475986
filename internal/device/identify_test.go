package device

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakePin is a goroutine-safe pin that counts transitions.
type fakePin struct {
	mu          sync.Mutex
	level       bool
	transitions int
}

func (p *fakePin) Set() {
	p.mu.Lock()
	p.level = true
	p.transitions++
	p.mu.Unlock()
}

func (p *fakePin) Clear() {
	p.mu.Lock()
	p.level = false
	p.transitions++
	p.mu.Unlock()
}

func (p *fakePin) Level() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

func (p *fakePin) Transitions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.transitions
}

func newTestIdentify(joined func() bool) (*IdentifyController, *AttributeStore, *fakePin) {
	attrs := NewAttributeStore()
	led := &fakePin{}
	events := NewEventBus(testLogger())
	c := NewIdentifyController(attrs, led, events, joined, testLogger())
	c.period = time.Millisecond
	return c, attrs, led
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached within timeout")
}

func TestIdentifyStartSchedulesToggle(t *testing.T) {
	c, attrs, led := newTestIdentify(nil)
	defer c.Cancel()

	if err := c.Start(DefaultIdentifyTime); err != nil {
		t.Fatal(err)
	}
	if !c.Active() {
		t.Fatal("controller should be active after Start")
	}
	if attrs.IdentifyTime() == 0 {
		t.Error("identify time should be non-zero while active")
	}

	// At least one toggle within a period or two.
	waitFor(t, time.Second, func() bool { return led.Transitions() > 0 })
}

func TestIdentifyStartWhileActiveIsNoOp(t *testing.T) {
	c, _, _ := newTestIdentify(nil)
	defer c.Cancel()

	if err := c.Start(DefaultIdentifyTime); err != nil {
		t.Fatal(err)
	}
	if err := c.Start(DefaultIdentifyTime); err != nil {
		t.Errorf("second Start returned %v, want nil", err)
	}
	if !c.Active() {
		t.Error("controller should stay active")
	}
}

func TestIdentifyCancel(t *testing.T) {
	c, attrs, led := newTestIdentify(nil)

	if err := c.Start(DefaultIdentifyTime); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, func() bool { return led.Transitions() > 0 })

	c.Cancel()
	if c.Active() {
		t.Error("controller should be inactive after Cancel")
	}
	if led.Level() {
		t.Error("LED should be forced low on Cancel")
	}
	if attrs.IdentifyTime() != 0 {
		t.Errorf("identify time = %d after Cancel, want 0", attrs.IdentifyTime())
	}
}

func TestIdentifyCancelWhileInactiveIsIdempotent(t *testing.T) {
	c, _, led := newTestIdentify(nil)

	c.Cancel()
	c.Cancel()
	if led.Transitions() != 0 {
		t.Errorf("LED transitions = %d, want 0", led.Transitions())
	}
}

func TestIdentifyRearmRestartsCountdownSecond(t *testing.T) {
	c, attrs, _ := newTestIdentify(nil)
	c.period = time.Hour // ticks are driven manually below

	if err := c.Start(5); err != nil {
		t.Fatal(err)
	}
	defer c.Cancel()
	c.mu.Lock()
	stop := c.stop
	c.mu.Unlock()

	// Run the session to just before its first decrement, then re-arm.
	for i := 0; i < ticksPerSecond-1; i++ {
		c.tick(stop)
	}
	if err := c.Start(5); err != nil {
		t.Fatal(err)
	}

	c.tick(stop)
	if got := attrs.IdentifyTime(); got != 5 {
		t.Errorf("identify time = %d one tick after re-arm, want 5", got)
	}
	for i := 0; i < ticksPerSecond-1; i++ {
		c.tick(stop)
	}
	if got := attrs.IdentifyTime(); got != 4 {
		t.Errorf("identify time = %d a full second after re-arm, want 4", got)
	}
}

func TestIdentifyCountdownExpires(t *testing.T) {
	c, attrs, _ := newTestIdentify(nil)

	// 1 second of countdown = 10 ticks at the test period.
	if err := c.Start(1); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, func() bool { return !c.Active() })

	if attrs.IdentifyTime() != 0 {
		t.Errorf("identify time = %d after expiry, want 0", attrs.IdentifyTime())
	}
}

func TestIdentifyStartNotJoined(t *testing.T) {
	c, _, led := newTestIdentify(func() bool { return false })

	err := c.Start(DefaultIdentifyTime)
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("err = %v, want ErrInvalidState", err)
	}
	if c.Active() {
		t.Error("controller should not activate while not joined")
	}
	if led.Transitions() != 0 {
		t.Errorf("LED transitions = %d, want 0", led.Transitions())
	}
}

func TestIdentifyToggle(t *testing.T) {
	c, _, _ := newTestIdentify(nil)

	if err := c.Toggle(); err != nil {
		t.Fatal(err)
	}
	if !c.Active() {
		t.Fatal("toggle from inactive should start a session")
	}

	if err := c.Toggle(); err != nil {
		t.Fatal(err)
	}
	if c.Active() {
		t.Error("toggle from active should cancel the session")
	}
}
