package automation

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"zigbee-coop-door/internal/device"
)

// Door is the control surface exposed to hook scripts.
type Door interface {
	SetOnOff(ctx context.Context, on bool) error
	OnOff() bool
	HandleIdentify(seconds uint16) error
}

// luaHandler is a registered Lua callback for an event type.
type luaHandler struct {
	eventType string // empty = any
	fn        *lua.LFunction
}

// Engine runs a single user hook script in a Lua VM and dispatches device
// events to the handlers it registers. All Lua access is serialized through
// the commands channel.
type Engine struct {
	door   Door
	events *device.EventBus
	path   string
	logger *slog.Logger

	state    *lua.LState
	commands chan func(*lua.LState)

	mu       sync.Mutex
	handlers []luaHandler

	ctx    context.Context
	cancel context.CancelFunc
	unsub  func()
	wg     sync.WaitGroup
}

// NewEngine creates an engine for the hook script at path.
func NewEngine(door Door, events *device.EventBus, path string, logger *slog.Logger) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		door:     door,
		events:   events,
		path:     path,
		logger:   logger.With("component", "automation"),
		commands: make(chan func(*lua.LState), 64),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start loads and runs the hook script, then begins dispatching events to
// the handlers it registered.
func (e *Engine) Start() error {
	code, err := os.ReadFile(e.path)
	if err != nil {
		return fmt.Errorf("read hook script: %w", err)
	}

	e.state = lua.NewState()
	e.registerDoorModule(e.state)

	if err := e.state.DoString(string(code)); err != nil {
		e.state.Close()
		e.state = nil
		return fmt.Errorf("run hook script: %w", err)
	}

	e.wg.Add(1)
	go e.loop()
	e.unsub = e.events.OnAll(e.dispatch)

	e.mu.Lock()
	count := len(e.handlers)
	e.mu.Unlock()
	e.logger.Info("hook script loaded", "path", e.path, "handlers", count)
	return nil
}

// Stop unsubscribes from events and tears the VM down.
func (e *Engine) Stop() {
	if e.unsub != nil {
		e.unsub()
		e.unsub = nil
	}
	e.cancel()
	e.wg.Wait()
	if e.state != nil {
		e.state.Close()
		e.state = nil
	}
	e.logger.Info("automation engine stopped")
}

func (e *Engine) loop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case cmd := <-e.commands:
			cmd(e.state)
		}
	}
}

func (e *Engine) dispatch(event device.Event) {
	e.mu.Lock()
	matched := make([]*lua.LFunction, 0, len(e.handlers))
	for _, h := range e.handlers {
		if h.eventType == "" || h.eventType == event.Type {
			matched = append(matched, h.fn)
		}
	}
	e.mu.Unlock()
	if len(matched) == 0 {
		return
	}

	cmd := func(L *lua.LState) {
		for _, fn := range matched {
			tbl := L.NewTable()
			tbl.RawSetString("type", lua.LString(event.Type))
			tbl.RawSetString("data", goToLua(L, event.Data))
			if err := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, tbl); err != nil {
				e.logger.Error("hook handler", "event", event.Type, "err", err)
			}
		}
	}

	select {
	case e.commands <- cmd:
	case <-e.ctx.Done():
	}
}

// goToLua converts a Go event payload to a Lua value.
func goToLua(L *lua.LState, val interface{}) lua.LValue {
	switch v := val.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(v)
	case string:
		return lua.LString(v)
	case int:
		return lua.LNumber(v)
	case int64:
		return lua.LNumber(v)
	case uint16:
		return lua.LNumber(v)
	case uint32:
		return lua.LNumber(v)
	case float64:
		return lua.LNumber(v)
	case map[string]interface{}:
		tbl := L.NewTable()
		for k, item := range v {
			tbl.RawSetString(k, goToLua(L, item))
		}
		return tbl
	default:
		return lua.LString(fmt.Sprintf("%v", v))
	}
}
