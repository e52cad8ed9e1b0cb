package lua

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/scriptbridge/internal/host"
)

// EncodeFunc turns a host reference into a handle token.
type EncodeFunc func(ref any) string

// DecodeFunc turns a handle token back into a host reference.
type DecodeFunc func(token string) any

// MapFromNative converts a host hashtable into a new Lua table, visiting
// every pair once in hashtable order. Pointer values are encoded with
// encode; a nil encode renders them with %p.
func MapFromNative(L *lua.LState, h *host.Hashtable, encode EncodeFunc) *lua.LTable {
	t := L.NewTable()
	if h == nil {
		return t
	}
	h.Map(func(key string, value any) {
		switch v := value.(type) {
		case string:
			t.RawSetString(key, lua.LString(v))
		case int:
			t.RawSetString(key, lua.LNumber(v))
		case nil:
			t.RawSetString(key, lua.LString(""))
		default:
			if encode != nil {
				t.RawSetString(key, lua.LString(encode(v)))
			} else {
				t.RawSetString(key, lua.LString(fmt.Sprintf("%p", v)))
			}
		}
	})
	return t
}

// MapToNative converts a Lua table into a new host hashtable with the given
// size hint and element kinds. Keys and values are coerced to text; values
// are inserted as strings when valueKind is host.KindString, as truncated
// integers for host.KindInteger, and otherwise decoded as handle tokens.
//
// It returns nil when t is nil or the kinds are not supported. The caller
// owns the result.
func MapToNative(t *lua.LTable, sizeHint int, keyKind, valueKind string, decode DecodeFunc) *host.Hashtable {
	if t == nil {
		return nil
	}
	h := host.NewHashtable(sizeHint, keyKind, valueKind)
	if h == nil {
		return nil
	}

	t.ForEach(func(k, v lua.LValue) {
		key := ToText(k)
		switch valueKind {
		case host.KindString:
			h.Set(key, ToText(v))
		case host.KindInteger:
			h.Set(key, ToInt(v))
		default:
			var ref any
			if decode != nil {
				ref = decode(ToText(v))
			}
			h.Set(key, ref)
		}
	})
	return h
}

// ListFromNative converts a list of strings into a Lua array.
func ListFromNative(L *lua.LState, items []string) *lua.LTable {
	t := L.CreateTable(len(items), 0)
	for i, item := range items {
		t.RawSetInt(i+1, lua.LString(item))
	}
	return t
}

// ListToNative converts the array part of a Lua table (indices 1..n) into
// strings. A non-table value yields nil.
func ListToNative(lv lua.LValue) []string {
	t, ok := lv.(*lua.LTable)
	if !ok || t == nil {
		return nil
	}
	n := t.MaxN()
	items := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, ToText(t.RawGetInt(i)))
	}
	return items
}

// ToText coerces a Lua value to text the way tostring does for scalars.
// nil becomes "".
func ToText(lv lua.LValue) string {
	switch v := lv.(type) {
	case nil, *lua.LNilType:
		return ""
	case lua.LString:
		return string(v)
	case lua.LNumber:
		return v.String()
	case lua.LBool:
		if v {
			return "true"
		}
		return "false"
	default:
		return lv.String()
	}
}

// ToInt coerces a Lua value to an integer, truncating toward zero. Numeric
// strings are parsed; anything else is 0. No range checks are applied
// beyond saturating at the int bounds.
func ToInt(lv lua.LValue) int {
	var f float64
	switch v := lv.(type) {
	case lua.LNumber:
		f = float64(v)
	case lua.LString:
		s := strings.TrimSpace(string(v))
		if n, err := strconv.ParseInt(s, 0, 64); err == nil {
			return int(n)
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		f = parsed
	case lua.LBool:
		if v {
			return 1
		}
		return 0
	default:
		return 0
	}

	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt:
		return math.MaxInt
	case f <= math.MinInt:
		return math.MinInt
	}
	return int(f)
}

// ToBool coerces a Lua value to a boolean. Numbers are true when non-zero
// and strings follow host.StringToBoolean; other values use Lua
// truthiness.
func ToBool(lv lua.LValue) bool {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		return v != 0
	case lua.LString:
		return host.StringToBoolean(string(v))
	default:
		return lua.LVAsBool(lv)
	}
}

// ToGoValue converts a Lua value to a Go value. Tables become []any when
// they are proper sequences and map[string]any otherwise; functions and
// cycles become nil.
func ToGoValue(lv lua.LValue) any {
	return toGoValue(lv, make(map[*lua.LTable]bool))
}

func toGoValue(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		defer delete(visited, v)
		return tableToGo(v, visited)
	case *lua.LUserData:
		return v.Value
	default:
		return nil
	}
}

func tableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	n := t.MaxN()
	count := 0
	t.ForEach(func(_, _ lua.LValue) { count++ })

	if n > 0 && n == count {
		arr := make([]any, n)
		for i := 1; i <= n; i++ {
			arr[i-1] = toGoValue(t.RawGetInt(i), visited)
		}
		return arr
	}

	m := make(map[string]any, count)
	t.ForEach(func(k, v lua.LValue) {
		m[ToText(k)] = toGoValue(v, visited)
	})
	return m
}

// ToLuaValue converts a Go value to a Lua value. Unknown types are wrapped
// in userdata.
func ToLuaValue(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return val
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
	case []string:
		return ListFromNative(L, val)
	case []any:
		t := L.CreateTable(len(val), 0)
		for i, item := range val {
			t.RawSetInt(i+1, ToLuaValue(L, item))
		}
		return t
	case map[string]string:
		t := L.CreateTable(0, len(val))
		for k, item := range val {
			t.RawSetString(k, lua.LString(item))
		}
		return t
	case map[string]any:
		t := L.CreateTable(0, len(val))
		for k, item := range val {
			t.RawSetString(k, ToLuaValue(L, item))
		}
		return t
	default:
		ud := L.NewUserData()
		ud.Value = v
		return ud
	}
}
