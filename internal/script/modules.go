package script

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/lightslider/internal/device"
)

// LogModule exposes zerolog to Lua: log.info("msg", {field = value}).
type LogModule struct{}

// NewLogModule creates a new log module
func NewLogModule() *LogModule {
	return &LogModule{}
}

// Loader is the module loader for Lua
func (m *LogModule) Loader(L *lua.LState) int {
	mod := L.NewTable()
	L.SetField(mod, "debug", L.NewFunction(m.at(zerolog.DebugLevel)))
	L.SetField(mod, "info", L.NewFunction(m.at(zerolog.InfoLevel)))
	L.SetField(mod, "warn", L.NewFunction(m.at(zerolog.WarnLevel)))
	L.SetField(mod, "error", L.NewFunction(m.at(zerolog.ErrorLevel)))
	L.Push(mod)
	return 1
}

func (m *LogModule) at(level zerolog.Level) lua.LGFunction {
	return func(L *lua.LState) int {
		msg := L.CheckString(1)
		event := log.WithLevel(level).Str("source", "lua")
		if tbl, ok := L.Get(2).(*lua.LTable); ok {
			tbl.ForEach(func(key, value lua.LValue) {
				event = event.Interface(lua.LVAsString(key), LuaToGo(value))
			})
		}
		event.Msg(msg)
		return 0
	}
}

// LightsModule lets a script send commands through the shared dispatcher:
// lights.turn_on("3", {brightness_pct = 40}). Commands are committed so they
// are never coalesced with slider traffic.
type LightsModule struct {
	dispatcher Dispatcher
}

// NewLightsModule creates a lights module
func NewLightsModule(dispatcher Dispatcher) *LightsModule {
	return &LightsModule{dispatcher: dispatcher}
}

// Loader is the module loader for Lua
func (m *LightsModule) Loader(L *lua.LState) int {
	mod := L.NewTable()
	L.SetField(mod, "turn_on", L.NewFunction(m.turnOn))
	L.Push(mod)
	return 1
}

func (m *LightsModule) turnOn(L *lua.LState) int {
	target := L.CheckString(1)
	payload := LuaTableToMap(L.CheckTable(2))
	if m.dispatcher == nil {
		L.RaiseError("lights.turn_on: no dispatcher")
		return 0
	}

	cmd := device.TurnOn(target, payload)
	cmd.Committed = true
	if err := m.dispatcher.DispatchFrom("lua", cmd); err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}
