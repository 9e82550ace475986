package device

import (
	"log/slog"
	"os"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestEventBusOn(t *testing.T) {
	eb := NewEventBus(testLogger())

	var got []Event
	eb.On(EventStateChange, func(e Event) { got = append(got, e) })

	eb.Emit(Event{Type: EventStateChange, Data: true})
	eb.Emit(Event{Type: EventIdentify, Data: false})

	if len(got) != 1 {
		t.Fatalf("handler called %d times, want 1", len(got))
	}
	if got[0].Data != true {
		t.Errorf("data = %v, want true", got[0].Data)
	}
}

func TestEventBusOnAll(t *testing.T) {
	eb := NewEventBus(testLogger())

	count := 0
	unsub := eb.OnAll(func(Event) { count++ })

	eb.Emit(Event{Type: EventStateChange})
	eb.Emit(Event{Type: EventIdentify})
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	unsub()
	eb.Emit(Event{Type: EventStateChange})
	if count != 2 {
		t.Errorf("count after unsubscribe = %d, want 2", count)
	}
}

func TestEventBusRecoversPanic(t *testing.T) {
	eb := NewEventBus(testLogger())

	eb.OnAll(func(Event) { panic("boom") })
	called := false
	eb.OnAll(func(Event) { called = true })

	eb.Emit(Event{Type: EventStateChange})
	if !called {
		t.Error("second handler not called after first panicked")
	}
}
