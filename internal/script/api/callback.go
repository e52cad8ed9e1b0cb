package api

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	slua "github.com/dshills/scriptbridge/internal/script/lua"
)

// Callback is a script function captured when it was handed to the host.
// Names are resolved once, at capture time.
type Callback struct {
	env  *Env
	fn   *lua.LFunction
	name string
}

// bindCallback captures lv, a Lua function or the name of a global
// function. Anything else, including an unknown name, yields nil.
func (e *Env) bindCallback(L *lua.LState, lv lua.LValue) *Callback {
	switch v := lv.(type) {
	case *lua.LFunction:
		return &Callback{env: e, fn: v, name: "<function>"}
	case lua.LString:
		if v == "" {
			return nil
		}
		fn, ok := L.GetGlobal(string(v)).(*lua.LFunction)
		if !ok {
			e.Host.Messages.Error("callback function not found",
				zap.String("script", e.scriptName()),
				zap.String("function", string(v)),
			)
			return nil
		}
		return &Callback{env: e, fn: fn, name: string(v)}
	}
	return nil
}

// Name returns the function name the callback was bound from.
func (cb *Callback) Name() string {
	return cb.name
}

// Call invokes the callback with the owning script made current and
// returns its first result. Errors are reported to the message sink.
func (cb *Callback) Call(args ...lua.LValue) (lua.LValue, error) {
	leave := cb.env.Session.Enter()
	defer leave()

	results, err := cb.env.Interp.Call(cb.fn, args...)
	if err != nil {
		cb.env.Host.Messages.Errorf("error in function %q (script: %s): %v", cb.name, cb.env.scriptName(), err)
		return lua.LNil, err
	}
	if len(results) == 0 {
		return lua.LNil, nil
	}
	return results[0], nil
}

// Int invokes the callback and coerces the result to an integer, or
// returns def when the call fails.
func (cb *Callback) Int(def int, args ...lua.LValue) int {
	v, err := cb.Call(args...)
	if err != nil {
		return def
	}
	return slua.ToInt(v)
}
