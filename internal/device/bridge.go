package device

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"zigbee-coop-door/internal/stepper"
	"zigbee-coop-door/internal/zcl"
	"zigbee-coop-door/internal/zcl/clusters"
)

// Actuator abstracts the stepper sequencer for the bridge.
type Actuator interface {
	Run(ctx context.Context, d stepper.Direction) error
}

// SnapshotSaver persists the mutable attribute state. Implemented by the
// settings store.
type SnapshotSaver interface {
	SaveAttributes(snap Snapshot) error
}

// Bridge receives attribute-set requests from the network transport,
// applies them to the attribute store, and triggers the actuator when the
// on/off attribute changes.
//
// The bridge is the single serialization point: attribute writes and the
// actuation they trigger are processed one at a time.
type Bridge struct {
	mu       sync.Mutex
	attrs    *AttributeStore
	seq      Actuator
	identify *IdentifyController
	saver    SnapshotSaver
	events   *EventBus
	logger   *slog.Logger
}

// NewBridge wires the command path. saver may be nil when persistence is
// disabled.
func NewBridge(attrs *AttributeStore, seq Actuator, identify *IdentifyController, saver SnapshotSaver, events *EventBus, logger *slog.Logger) *Bridge {
	return &Bridge{
		attrs:    attrs,
		seq:      seq,
		identify: identify,
		saver:    saver,
		events:   events,
		logger:   logger.With("component", "bridge"),
	}
}

// ApplyAttributeWrite handles a network-originated attribute write. Writes
// to the on/off attribute of the On/Off cluster update the store and, when
// the value changed, drive the door. Any other cluster/attribute pair
// returns ErrUnhandled and leaves device state untouched.
func (b *Bridge) ApplyAttributeWrite(ctx context.Context, clusterID, attrID uint16, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if clusterID != clusters.OnOff.ID || attrID != clusters.AttrOnOff {
		b.logger.Info("unhandled attribute write", "cluster", fmt.Sprintf("0x%04X", clusterID), "attr", fmt.Sprintf("0x%04X", attrID))
		return fmt.Errorf("cluster 0x%04X attr 0x%04X: %w", clusterID, attrID, ErrUnhandled)
	}

	attr := clusters.OnOff.FindAttribute(attrID)
	if !attr.IsWritable() {
		return fmt.Errorf("attribute %s is read only: %w", attr.Name, ErrUnhandled)
	}
	if size := zcl.TypeSize(attr.Type); len(value) != size {
		return fmt.Errorf("%s value must be %d byte(s), got %d: %w", attr.Name, size, len(value), ErrUnhandled)
	}

	return b.applyOnOff(ctx, value[0] != 0)
}

func (b *Bridge) applyOnOff(ctx context.Context, on bool) error {
	if !b.attrs.SetOnOff(on) {
		b.logger.Debug("on/off attribute unchanged", "value", on)
		return nil
	}
	b.logger.Info("on/off attribute set", "value", on)

	dir := stepper.Retract
	if on {
		dir = stepper.Extend
	}
	if err := b.seq.Run(ctx, dir); err != nil {
		return fmt.Errorf("actuation: %w", err)
	}

	b.persist()
	b.events.Emit(Event{Type: EventStateChange, Data: on})
	return nil
}

// SetOnOff applies an on/off change through the same serialized path as a
// network write. Used by the local control surfaces (web, scripts).
func (b *Bridge) SetOnOff(ctx context.Context, on bool) error {
	var v byte
	if on {
		v = 1
	}
	return b.ApplyAttributeWrite(ctx, clusters.OnOff.ID, clusters.AttrOnOff, []byte{v})
}

// OnOff returns the current on/off attribute.
func (b *Bridge) OnOff() bool {
	return b.attrs.OnOff()
}

// HandleIdentify processes the network identify command: a non-zero time
// starts (or re-arms) a session, zero cancels it.
func (b *Bridge) HandleIdentify(seconds uint16) error {
	if seconds == 0 {
		b.identify.Cancel()
		return nil
	}
	return b.identify.Start(seconds)
}

// IdentifyQuery answers the network's identify query.
func (b *Bridge) IdentifyQuery() bool {
	return b.identify.Active()
}

// ToggleIdentify handles the local short-press intent.
func (b *Bridge) ToggleIdentify() error {
	return b.identify.Toggle()
}

func (b *Bridge) persist() {
	if b.saver == nil {
		return
	}
	if err := b.saver.SaveAttributes(b.attrs.Snapshot()); err != nil {
		b.logger.Error("persist attributes", "err", err)
	}
}
