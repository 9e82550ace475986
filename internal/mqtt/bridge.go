package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"zigbee-coop-door/internal/device"
)

// Config holds MQTT transport configuration.
type Config struct {
	Broker      string
	Username    string
	Password    string
	TopicPrefix string
	DeviceName  string
}

// Bridge is the network transport of the door: it carries attribute writes
// and identify commands in over MQTT and publishes state out. A live broker
// connection doubles as the device's joined state.
type Bridge struct {
	client pahomqtt.Client
	door   *device.Bridge
	attrs  *device.AttributeStore
	net    *device.NetworkState
	events *device.EventBus
	prefix string
	name   string
	logger *slog.Logger
	unsub  func()
	ctx    context.Context
	cancel context.CancelFunc
}

// NewBridge creates and connects an MQTT transport bridge.
func NewBridge(door *device.Bridge, attrs *device.AttributeStore, net *device.NetworkState, events *device.EventBus, cfg Config, logger *slog.Logger) (*Bridge, error) {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bridge{
		door:   door,
		attrs:  attrs,
		net:    net,
		events: events,
		prefix: cfg.TopicPrefix,
		name:   cfg.DeviceName,
		logger: logger.With("component", "mqtt"),
		ctx:    ctx,
		cancel: cancel,
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID("coop-door-" + cfg.DeviceName).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(b.topic("availability"), "offline", 1, true).
		SetOnConnectHandler(b.onConnect).
		SetConnectionLostHandler(b.onConnectionLost)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	// b.client must be assigned before Connect: paho runs the connect
	// handler on its own goroutine, and the handler publishes through it.
	b.client = pahomqtt.NewClient(opts)
	token := b.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		cancel()
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		cancel()
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return b, nil
}

// onConnect announces the device after every (re)connect: joined state,
// availability, retained state, and the set-topic subscription.
func (b *Bridge) onConnect(pahomqtt.Client) {
	b.logger.Info("MQTT connected")
	b.net.SetJoined(true)
	b.publishAvailability("online")
	b.publishState()
	b.subscribeSet()
}

func (b *Bridge) onConnectionLost(_ pahomqtt.Client, err error) {
	b.logger.Warn("MQTT connection lost", "err", err)
	b.net.SetJoined(false)
}

// Start subscribes to device events and begins publishing state changes.
func (b *Bridge) Start() {
	b.unsub = b.events.OnAll(b.handleEvent)
	b.logger.Info("MQTT transport started", "prefix", b.prefix, "device", b.name)
}

// Stop publishes the offline state, unsubscribes, and disconnects.
func (b *Bridge) Stop() {
	b.cancel()
	if b.unsub != nil {
		b.unsub()
	}
	b.publishAvailability("offline")
	b.net.SetJoined(false)
	b.client.Disconnect(1000)
	b.logger.Info("MQTT transport stopped")
}

func (b *Bridge) topic(parts ...string) string {
	return strings.Join(append([]string{b.prefix, b.name}, parts...), "/")
}

func (b *Bridge) handleEvent(event device.Event) {
	switch event.Type {
	case device.EventStateChange, device.EventIdentify:
		b.publishState()
	case device.EventFactoryReset:
		b.publishAvailability("offline")
	}
}

// statePayload is the retained state document.
type statePayload struct {
	State        string `json:"state"`
	Identify     bool   `json:"identify"`
	IdentifyTime uint16 `json:"identify_time"`
}

func (b *Bridge) publishState() {
	p := statePayload{
		State:        onOffString(b.door.OnOff()),
		Identify:     b.door.IdentifyQuery(),
		IdentifyTime: b.attrs.IdentifyTime(),
	}
	data, err := json.Marshal(p)
	if err != nil {
		b.logger.Error("marshal state", "err", err)
		return
	}
	b.publish("", data, true)
}

func (b *Bridge) publishAvailability(state string) {
	b.publish("availability", []byte(state), true)
}

func (b *Bridge) publish(suffix string, payload []byte, retain bool) {
	topic := b.topic()
	if suffix != "" {
		topic = b.topic(suffix)
	}
	token := b.client.Publish(topic, 1, retain, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			b.logger.Error("mqtt publish", "topic", topic, "err", token.Error())
		}
	}()
}

func (b *Bridge) subscribeSet() {
	topic := b.topic("set")
	token := b.client.Subscribe(topic, 1, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		b.handleSet(msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		b.logger.Error("mqtt subscribe", "topic", topic, "err", token.Error())
		return
	}
	b.logger.Info("subscribed", "topic", topic)
}

// setRequest is the inbound command document. Either field may be absent.
type setRequest struct {
	State    *string `json:"state"`
	Identify *uint16 `json:"identify"`
}

// parseSetRequest accepts either a JSON document or a bare "ON"/"OFF"/
// "TOGGLE" payload.
func parseSetRequest(payload []byte) (*setRequest, error) {
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" {
		return nil, fmt.Errorf("empty set payload")
	}
	if !strings.HasPrefix(trimmed, "{") {
		s := strings.ToUpper(trimmed)
		switch s {
		case "ON", "OFF", "TOGGLE":
			return &setRequest{State: &s}, nil
		default:
			return nil, fmt.Errorf("unknown state %q", trimmed)
		}
	}
	var req setRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("parse set payload: %w", err)
	}
	if req.State != nil {
		s := strings.ToUpper(*req.State)
		switch s {
		case "ON", "OFF", "TOGGLE":
			req.State = &s
		default:
			return nil, fmt.Errorf("unknown state %q", *req.State)
		}
	}
	if req.State == nil && req.Identify == nil {
		return nil, fmt.Errorf("set payload carries no command")
	}
	return &req, nil
}

func (b *Bridge) handleSet(payload []byte) {
	req, err := parseSetRequest(payload)
	if err != nil {
		b.logger.Warn("bad set payload", "err", err)
		return
	}

	if req.Identify != nil {
		if err := b.door.HandleIdentify(*req.Identify); err != nil {
			b.logger.Warn("identify command rejected", "seconds", *req.Identify, "err", err)
		}
	}

	if req.State != nil {
		on := *req.State == "ON"
		if *req.State == "TOGGLE" {
			on = !b.door.OnOff()
		}
		ctx, cancel := context.WithTimeout(b.ctx, 5*time.Second)
		defer cancel()
		if err := b.door.SetOnOff(ctx, on); err != nil {
			b.logger.Warn("state command rejected", "state", *req.State, "err", err)
		}
	}
}

func onOffString(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
