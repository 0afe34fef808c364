package script

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// LuaToGo converts a Lua value to a Go value. Tables with only positive
// integer keys become slices.
func LuaToGo(v lua.LValue) interface{} {
	switch val := v.(type) {
	case lua.LString:
		return string(val)
	case lua.LNumber:
		return float64(val)
	case lua.LBool:
		return bool(val)
	case *lua.LTable:
		if n := val.MaxN(); n > 0 && arrayOnly(val) {
			arr := make([]interface{}, n)
			for i := 1; i <= n; i++ {
				arr[i-1] = LuaToGo(val.RawGetInt(i))
			}
			return arr
		}
		return LuaTableToMap(val)
	case *lua.LNilType:
		return nil
	default:
		return v.String()
	}
}

func arrayOnly(tbl *lua.LTable) bool {
	ok := true
	tbl.ForEach(func(k, _ lua.LValue) {
		if _, isNum := k.(lua.LNumber); !isNum {
			ok = false
		}
	})
	return ok
}

// LuaTableToMap converts the string-keyed entries of tbl.
func LuaTableToMap(tbl *lua.LTable) map[string]interface{} {
	m := make(map[string]interface{})
	tbl.ForEach(func(k, v lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			m[string(ks)] = LuaToGo(v)
		}
	})
	return m
}

// GoToLuaValue converts a Go value to a Lua value, including the slice
// types command payloads carry.
func GoToLuaValue(L *lua.LState, v interface{}) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []int:
		tbl := L.NewTable()
		for _, item := range val {
			tbl.Append(lua.LNumber(item))
		}
		return tbl
	case []float64:
		tbl := L.NewTable()
		for _, item := range val {
			tbl.Append(lua.LNumber(item))
		}
		return tbl
	case []interface{}:
		tbl := L.NewTable()
		for _, item := range val {
			tbl.Append(GoToLuaValue(L, item))
		}
		return tbl
	case map[string]interface{}:
		tbl := L.NewTable()
		for k, v := range val {
			tbl.RawSetString(k, GoToLuaValue(L, v))
		}
		return tbl
	default:
		return lua.LString(fmt.Sprintf("%v", v))
	}
}
