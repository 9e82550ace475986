package device

import (
	"log/slog"
	"sync"
)

// Event types
const (
	EventStateChange  = "state_change"
	EventIdentify     = "identify"
	EventNetworkState = "network_state"
	EventFactoryReset = "factory_reset"
)

// Event represents a device event. Data carries the event payload:
// the new on/off state for state_change, the session active flag for
// identify, the joined flag for network_state.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// EventHandler is a callback for events.
type EventHandler func(Event)

type subscription struct {
	id        uint64
	eventType string // empty = all types
	handler   EventHandler
}

// EventBus provides pub/sub for device events. Handlers run synchronously
// on the emitting goroutine; a panicking handler is recovered so one bad
// subscriber cannot take the device down.
type EventBus struct {
	mu     sync.Mutex
	subs   []subscription
	nextID uint64
	logger *slog.Logger
}

// NewEventBus creates a new event bus.
func NewEventBus(logger *slog.Logger) *EventBus {
	return &EventBus{logger: logger}
}

// On registers a handler for a specific event type.
// Returns an unsubscribe function.
func (eb *EventBus) On(eventType string, handler EventHandler) func() {
	return eb.subscribe(eventType, handler)
}

// OnAll registers a handler that receives every event.
// Returns an unsubscribe function.
func (eb *EventBus) OnAll(handler EventHandler) func() {
	return eb.subscribe("", handler)
}

func (eb *EventBus) subscribe(eventType string, handler EventHandler) func() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	id := eb.nextID
	eb.nextID++
	eb.subs = append(eb.subs, subscription{id: id, eventType: eventType, handler: handler})
	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		for i := range eb.subs {
			if eb.subs[i].id == id {
				eb.subs = append(eb.subs[:i], eb.subs[i+1:]...)
				return
			}
		}
	}
}

// Emit delivers an event to all matching handlers.
func (eb *EventBus) Emit(event Event) {
	eb.mu.Lock()
	handlers := make([]EventHandler, 0, len(eb.subs))
	for _, s := range eb.subs {
		if s.eventType == "" || s.eventType == event.Type {
			handlers = append(handlers, s.handler)
		}
	}
	eb.mu.Unlock()

	for _, h := range handlers {
		eb.dispatch(event, h)
	}
}

func (eb *EventBus) dispatch(event Event, h EventHandler) {
	defer func() {
		if r := recover(); r != nil {
			eb.logger.Error("event handler panic", "type", event.Type, "panic", r)
		}
	}()
	h(event)
}
