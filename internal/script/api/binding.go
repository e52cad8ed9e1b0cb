package api

import (
	lua "github.com/yuin/gopher-lua"

	slua "github.com/dshills/scriptbridge/internal/script/lua"
)

// Kind is the declared type of a bound operation argument.
type Kind int

const (
	ArgString Kind = iota
	ArgInt
	ArgBool
	ArgHandle
	ArgCallback
	ArgTable
)

// Result is the declared type of a bound operation result.
type Result int

const (
	ResultString Result = iota
	ResultHandle
	ResultInt
	ResultBool
	ResultTable
)

// Return codes of operations without a natural result.
const (
	ReturnOK    = 1
	ReturnError = 0
)

// Binding is one entry of the API catalog.
type Binding struct {
	Name   string
	Params []Kind
	Result Result

	// Empty overrides the sentinel returned when a guard fails. Only
	// integer results use it; nil keeps the default.
	Empty *int

	// SkipInit disables the initialization guard.
	SkipInit bool

	// Fn runs the operation on decoded arguments. Its return value is
	// encoded according to Result: string, host reference, int, bool or
	// *lua.LTable.
	Fn func(c *Call) any
}

// Arity returns the declared number of arguments.
func (b Binding) Arity() int {
	return len(b.Params)
}

// empty returns the sentinel for the result kind.
func (b Binding) empty(L *lua.LState) lua.LValue {
	switch b.Result {
	case ResultInt:
		if b.Empty != nil {
			return lua.LNumber(*b.Empty)
		}
		return lua.LNumber(0)
	case ResultBool:
		return lua.LFalse
	case ResultTable:
		return L.NewTable()
	default:
		return lua.LString("")
	}
}

func intp(i int) *int { return &i }

// Call carries the decoded arguments of one invocation.
type Call struct {
	Env *Env
	L   *lua.LState

	args []any
}

// String returns argument i as text.
func (c *Call) String(i int) string {
	s, _ := c.args[i].(string)
	return s
}

// Int returns argument i as an integer.
func (c *Call) Int(i int) int {
	n, _ := c.args[i].(int)
	return n
}

// Bool returns argument i as a boolean.
func (c *Call) Bool(i int) bool {
	b, _ := c.args[i].(bool)
	return b
}

// Handle returns the host reference decoded from argument i, or nil.
func (c *Call) Handle(i int) any {
	return c.args[i]
}

// Callback returns the callback bound from argument i, or nil.
func (c *Call) Callback(i int) *Callback {
	cb, _ := c.args[i].(*Callback)
	return cb
}

// Table returns argument i as a Lua table, or nil.
func (c *Call) Table(i int) *lua.LTable {
	t, _ := c.args[i].(*lua.LTable)
	return t
}

// wrap builds the Lua function for b: initialization guard, arity guard,
// argument decoding, invocation and result encoding.
func (e *Env) wrap(b Binding) lua.LGFunction {
	return func(L *lua.LState) int {
		if !b.SkipInit && e.Session.Name() == "" {
			e.guardFailed(b.Name, ErrNotInitialized)
			L.Push(b.empty(L))
			return 1
		}
		if L.GetTop() != b.Arity() {
			e.guardFailed(b.Name, ErrWrongArguments)
			L.Push(b.empty(L))
			return 1
		}

		call := &Call{Env: e, L: L, args: make([]any, len(b.Params))}
		for i, kind := range b.Params {
			call.args[i] = e.decode(L, kind, L.Get(i+1))
		}

		L.Push(e.encode(L, b, b.Fn(call)))
		return 1
	}
}

func (e *Env) decode(L *lua.LState, kind Kind, lv lua.LValue) any {
	switch kind {
	case ArgInt:
		return slua.ToInt(lv)
	case ArgBool:
		return slua.ToBool(lv)
	case ArgHandle:
		return e.Handles.Decode(slua.ToText(lv))
	case ArgCallback:
		return e.bindCallback(L, lv)
	case ArgTable:
		t, _ := lv.(*lua.LTable)
		return t
	default:
		return slua.ToText(lv)
	}
}

func (e *Env) encode(L *lua.LState, b Binding, v any) lua.LValue {
	switch b.Result {
	case ResultHandle:
		return lua.LString(e.Handles.Encode(v))
	case ResultInt:
		switch n := v.(type) {
		case int:
			return lua.LNumber(n)
		case bool:
			if n {
				return lua.LNumber(1)
			}
			return lua.LNumber(0)
		}
	case ResultBool:
		if ok, isBool := v.(bool); isBool {
			return lua.LBool(ok)
		}
	case ResultTable:
		if t, ok := v.(*lua.LTable); ok && t != nil {
			return t
		}
	default:
		if s, ok := v.(string); ok {
			return lua.LString(s)
		}
	}
	return b.empty(L)
}
