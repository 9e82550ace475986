package device

import (
	"log/slog"
	"sync"

	"zigbee-coop-door/internal/hal"
)

// NetworkState tracks whether the device is joined to its network and
// mirrors that onto the network status LED. The transport layer reports
// join-state changes here.
type NetworkState struct {
	mu     sync.Mutex
	joined bool
	led    hal.Pin
	events *EventBus
	logger *slog.Logger
}

// NewNetworkState creates the join-state tracker. led may be nil.
func NewNetworkState(led hal.Pin, events *EventBus, logger *slog.Logger) *NetworkState {
	return &NetworkState{
		led:    led,
		events: events,
		logger: logger.With("component", "network"),
	}
}

// SetJoined records a join-state change, updates the status LED, and emits
// a network_state event. Repeated reports of the same state are ignored.
func (n *NetworkState) SetJoined(joined bool) {
	n.mu.Lock()
	if n.joined == joined {
		n.mu.Unlock()
		return
	}
	n.joined = joined
	if n.led != nil {
		if joined {
			n.led.Set()
		} else {
			n.led.Clear()
		}
	}
	n.mu.Unlock()

	n.logger.Info("network state changed", "joined", joined)
	n.events.Emit(Event{Type: EventNetworkState, Data: joined})
}

// Joined reports whether the device is currently joined.
func (n *NetworkState) Joined() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.joined
}
