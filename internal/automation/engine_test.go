package automation

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	lua "github.com/yuin/gopher-lua"

	"zigbee-coop-door/internal/device"
)

type fakeDoor struct {
	mu       sync.Mutex
	on       bool
	sets     []bool
	identify []uint16
	setCh    chan bool
}

func newFakeDoor() *fakeDoor {
	return &fakeDoor{setCh: make(chan bool, 16)}
}

func (d *fakeDoor) SetOnOff(_ context.Context, on bool) error {
	d.mu.Lock()
	d.on = on
	d.sets = append(d.sets, on)
	d.mu.Unlock()
	d.setCh <- on
	return nil
}

func (d *fakeDoor) OnOff() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.on
}

func (d *fakeDoor) HandleIdentify(seconds uint16) error {
	d.mu.Lock()
	d.identify = append(d.identify, seconds)
	d.mu.Unlock()
	return nil
}

func newTestEngine(t *testing.T, script string) (*Engine, *fakeDoor, *device.EventBus) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	path := filepath.Join(t.TempDir(), "hooks.lua")
	if err := os.WriteFile(path, []byte(script), 0644); err != nil {
		t.Fatal(err)
	}

	door := newFakeDoor()
	events := device.NewEventBus(logger)
	e := NewEngine(door, events, path, logger)
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(e.Stop)
	return e, door, events
}

func TestTopLevelScriptRuns(t *testing.T) {
	_, door, _ := newTestEngine(t, `door.identify(5)`)

	door.mu.Lock()
	defer door.mu.Unlock()
	if len(door.identify) != 1 || door.identify[0] != 5 {
		t.Errorf("identify calls = %v, want [5]", door.identify)
	}
}

func TestHandlerDispatch(t *testing.T) {
	_, door, events := newTestEngine(t, `
		door.on("state_change", function(e)
			if e.data == false then
				door.turn_on()
			end
		end)
	`)

	events.Emit(device.Event{Type: device.EventStateChange, Data: false})

	select {
	case on := <-door.setCh:
		if !on {
			t.Error("handler should have turned the door on")
		}
	case <-time.After(time.Second):
		t.Fatal("handler not dispatched")
	}
}

func TestHandlerFiltersEventType(t *testing.T) {
	_, door, events := newTestEngine(t, `
		door.on("network_state", function(e)
			door.turn_off()
		end)
	`)

	events.Emit(device.Event{Type: device.EventStateChange, Data: true})
	events.Emit(device.Event{Type: device.EventNetworkState, Data: true})

	select {
	case on := <-door.setCh:
		if on {
			t.Error("handler should have turned the door off")
		}
	case <-time.After(time.Second):
		t.Fatal("handler not dispatched")
	}

	select {
	case <-door.setCh:
		t.Error("state_change must not match a network_state handler")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBrokenScriptFailsStart(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	path := filepath.Join(t.TempDir(), "hooks.lua")
	if err := os.WriteFile(path, []byte(`this is not lua`), 0644); err != nil {
		t.Fatal(err)
	}

	e := NewEngine(newFakeDoor(), device.NewEventBus(logger), path, logger)
	if err := e.Start(); err == nil {
		e.Stop()
		t.Fatal("Start should fail for a broken script")
	}
}

func TestGoToLua(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	tests := []struct {
		name string
		val  interface{}
		want lua.LValueType
	}{
		{"nil", nil, lua.LTNil},
		{"bool", true, lua.LTBool},
		{"string", "hello", lua.LTString},
		{"int", 42, lua.LTNumber},
		{"uint16", uint16(30), lua.LTNumber},
		{"float64", 3.14, lua.LTNumber},
		{"map", map[string]interface{}{"a": 1}, lua.LTTable},
		{"unknown", struct{}{}, lua.LTString},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := goToLua(L, tt.val)
			if result.Type() != tt.want {
				t.Errorf("goToLua(%v) type = %v, want %v", tt.val, result.Type(), tt.want)
			}
		})
	}
}
