package mqtt

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"zigbee-coop-door/internal/device"
	"zigbee-coop-door/internal/stepper"
)

type fakeToken struct{}

func (fakeToken) Wait() bool                     { return true }
func (fakeToken) WaitTimeout(time.Duration) bool { return true }
func (fakeToken) Error() error                   { return nil }
func (fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type publishRec struct {
	topic    string
	payload  string
	retained bool
}

// fakeClient records publishes and subscriptions in place of a live broker.
type fakeClient struct {
	mu        sync.Mutex
	published []publishRec
	subs      []string
}

func (c *fakeClient) IsConnected() bool       { return true }
func (c *fakeClient) IsConnectionOpen() bool  { return true }
func (c *fakeClient) Connect() pahomqtt.Token { return fakeToken{} }
func (c *fakeClient) Disconnect(uint)         {}

func (c *fakeClient) Publish(topic string, _ byte, retained bool, payload interface{}) pahomqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	var data string
	switch p := payload.(type) {
	case []byte:
		data = string(p)
	case string:
		data = p
	}
	c.published = append(c.published, publishRec{topic: topic, payload: data, retained: retained})
	return fakeToken{}
}

func (c *fakeClient) Subscribe(topic string, _ byte, _ pahomqtt.MessageHandler) pahomqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, topic)
	return fakeToken{}
}

func (c *fakeClient) SubscribeMultiple(map[string]byte, pahomqtt.MessageHandler) pahomqtt.Token {
	return fakeToken{}
}
func (c *fakeClient) Unsubscribe(...string) pahomqtt.Token     { return fakeToken{} }
func (c *fakeClient) AddRoute(string, pahomqtt.MessageHandler) {}
func (c *fakeClient) OptionsReader() pahomqtt.ClientOptionsReader {
	return pahomqtt.ClientOptionsReader{}
}

func (c *fakeClient) find(topic string) (publishRec, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.published) - 1; i >= 0; i-- {
		if c.published[i].topic == topic {
			return c.published[i], true
		}
	}
	return publishRec{}, false
}

type nopPin struct{}

func (nopPin) Set()   {}
func (nopPin) Clear() {}

type nopActuator struct{}

func (nopActuator) Run(context.Context, stepper.Direction) error { return nil }

func newTestTransport(t *testing.T) (*Bridge, *fakeClient, *device.NetworkState) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	attrs := device.NewAttributeStore()
	events := device.NewEventBus(logger)
	net := device.NewNetworkState(nil, events, logger)
	identify := device.NewIdentifyController(attrs, nopPin{}, events, net.Joined, logger)
	t.Cleanup(identify.Cancel)
	door := device.NewBridge(attrs, nopActuator{}, identify, nil, events, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	fc := &fakeClient{}
	b := &Bridge{
		client: fc,
		door:   door,
		attrs:  attrs,
		net:    net,
		events: events,
		prefix: "coop",
		name:   "backyard",
		logger: logger.With("component", "mqtt"),
		ctx:    ctx,
		cancel: cancel,
	}
	return b, fc, net
}

// The connect handler publishes through the bridge's client field, so the
// field must already be populated when the handler fires.
func TestOnConnectAnnouncesDevice(t *testing.T) {
	b, fc, net := newTestTransport(t)

	b.onConnect(fc)

	if !net.Joined() {
		t.Error("device should be joined after connect")
	}
	avail, ok := fc.find("coop/backyard/availability")
	if !ok || avail.payload != "online" || !avail.retained {
		t.Errorf("availability publish = %+v, want retained online", avail)
	}
	state, ok := fc.find("coop/backyard")
	if !ok || !strings.Contains(state.payload, `"state":"OFF"`) || !state.retained {
		t.Errorf("state publish = %+v, want retained OFF document", state)
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()
	if len(fc.subs) != 1 || fc.subs[0] != "coop/backyard/set" {
		t.Errorf("subscriptions = %v, want [coop/backyard/set]", fc.subs)
	}
}

func TestConnectionLostClearsJoined(t *testing.T) {
	b, fc, net := newTestTransport(t)

	b.onConnect(fc)
	b.onConnectionLost(fc, context.Canceled)

	if net.Joined() {
		t.Error("device should not be joined after connection loss")
	}
}

func TestHandleSetDrivesDoor(t *testing.T) {
	b, _, _ := newTestTransport(t)

	b.handleSet([]byte("ON"))
	if !b.door.OnOff() {
		t.Error("door should be on after ON set")
	}
	b.handleSet([]byte("TOGGLE"))
	if b.door.OnOff() {
		t.Error("door should be off after TOGGLE")
	}
}

func TestParseSetRequestBare(t *testing.T) {
	tests := []struct {
		payload string
		want    string
	}{
		{"ON", "ON"},
		{"off", "OFF"},
		{" Toggle \n", "TOGGLE"},
	}

	for _, tt := range tests {
		req, err := parseSetRequest([]byte(tt.payload))
		if err != nil {
			t.Errorf("parseSetRequest(%q): %v", tt.payload, err)
			continue
		}
		if req.State == nil || *req.State != tt.want {
			t.Errorf("parseSetRequest(%q).State = %v, want %q", tt.payload, req.State, tt.want)
		}
		if req.Identify != nil {
			t.Errorf("parseSetRequest(%q).Identify = %v, want nil", tt.payload, *req.Identify)
		}
	}
}

func TestParseSetRequestJSON(t *testing.T) {
	req, err := parseSetRequest([]byte(`{"state":"on","identify":30}`))
	if err != nil {
		t.Fatal(err)
	}
	if req.State == nil || *req.State != "ON" {
		t.Errorf("state = %v, want ON", req.State)
	}
	if req.Identify == nil || *req.Identify != 30 {
		t.Errorf("identify = %v, want 30", req.Identify)
	}
}

func TestParseSetRequestIdentifyOnly(t *testing.T) {
	req, err := parseSetRequest([]byte(`{"identify":0}`))
	if err != nil {
		t.Fatal(err)
	}
	if req.State != nil {
		t.Errorf("state = %q, want nil", *req.State)
	}
	if req.Identify == nil || *req.Identify != 0 {
		t.Errorf("identify = %v, want 0", req.Identify)
	}
}

func TestParseSetRequestRejectsGarbage(t *testing.T) {
	tests := []string{
		"",
		"OPEN",
		`{"state":"sideways"}`,
		`{}`,
		`{"brightness":128}`,
		`{"state":`,
	}

	for _, payload := range tests {
		if _, err := parseSetRequest([]byte(payload)); err == nil {
			t.Errorf("parseSetRequest(%q): expected error", payload)
		}
	}
}

func TestTopicLayout(t *testing.T) {
	b := &Bridge{prefix: "coop", name: "backyard"}

	if got := b.topic(); got != "coop/backyard" {
		t.Errorf("state topic = %q", got)
	}
	if got := b.topic("set"); got != "coop/backyard/set" {
		t.Errorf("set topic = %q", got)
	}
	if got := b.topic("availability"); got != "coop/backyard/availability" {
		t.Errorf("availability topic = %q", got)
	}
}

func TestOnOffString(t *testing.T) {
	if onOffString(true) != "ON" || onOffString(false) != "OFF" {
		t.Error("onOffString mapping broken")
	}
}
