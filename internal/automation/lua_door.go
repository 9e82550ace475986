package automation

import (
	"context"
	"time"

	lua "github.com/yuin/gopher-lua"
)

const maxHandlers = 100

// registerDoorModule registers the `door` global table in the Lua state.
func (e *Engine) registerDoorModule(L *lua.LState) {
	mod := L.NewTable()

	mod.RawSetString("on", L.NewFunction(e.luaOn))
	mod.RawSetString("turn_on", L.NewFunction(e.luaSetState(true)))
	mod.RawSetString("turn_off", L.NewFunction(e.luaSetState(false)))
	mod.RawSetString("toggle", L.NewFunction(e.luaToggle))
	mod.RawSetString("state", L.NewFunction(e.luaState))
	mod.RawSetString("identify", L.NewFunction(e.luaIdentify))
	mod.RawSetString("log", L.NewFunction(e.luaLog))

	L.SetGlobal("door", mod)
}

// door.on(event_type, callback) — empty event_type matches every event.
func (e *Engine) luaOn(L *lua.LState) int {
	eventType := L.CheckString(1)
	fn := L.CheckFunction(2)

	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.handlers) >= maxHandlers {
		L.RaiseError("too many handlers (max %d)", maxHandlers)
		return 0
	}
	e.handlers = append(e.handlers, luaHandler{eventType: eventType, fn: fn})
	return 0
}

// door.turn_on() / door.turn_off()
func (e *Engine) luaSetState(on bool) lua.LGFunction {
	return func(L *lua.LState) int {
		e.applyState(on)
		return 0
	}
}

// door.toggle()
func (e *Engine) luaToggle(L *lua.LState) int {
	e.applyState(!e.door.OnOff())
	return 0
}

func (e *Engine) applyState(on bool) {
	ctx, cancel := context.WithTimeout(e.ctx, 5*time.Second)
	defer cancel()
	if err := e.door.SetOnOff(ctx, on); err != nil {
		e.logger.Error("script state change", "on", on, "err", err)
	}
}

// door.state() -> bool
func (e *Engine) luaState(L *lua.LState) int {
	L.Push(lua.LBool(e.door.OnOff()))
	return 1
}

// door.identify(seconds) — 0 cancels.
func (e *Engine) luaIdentify(L *lua.LState) int {
	seconds := L.CheckInt(1)
	if seconds < 0 || seconds > 0xFFFF {
		L.RaiseError("identify seconds out of range: %d", seconds)
		return 0
	}
	if err := e.door.HandleIdentify(uint16(seconds)); err != nil {
		e.logger.Warn("script identify", "seconds", seconds, "err", err)
	}
	return 0
}

// door.log(message)
func (e *Engine) luaLog(L *lua.LState) int {
	msg := L.CheckString(1)
	e.logger.Info("script", "msg", msg)
	return 0
}
