package lua

import (
	"errors"
	"strings"
	"testing"
	"time"

	glua "github.com/yuin/gopher-lua"
)

func newTestState(t *testing.T, opts ...StateOption) *State {
	t.Helper()
	state, err := NewState(opts...)
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	t.Cleanup(func() { state.Close() })
	return state
}

func TestNewState(t *testing.T) {
	state := newTestState(t)

	if state.IsClosed() {
		t.Error("NewState() returned closed state")
	}
	if state.LuaState() == nil {
		t.Error("NewState() LuaState() is nil")
	}
	for _, lib := range []string{"string", "table", "math", "coroutine"} {
		if state.GetGlobal(lib) == glua.LNil {
			t.Errorf("library %q is not open", lib)
		}
	}
	for _, lib := range []string{"io", "os", "debug"} {
		if state.GetGlobal(lib) != glua.LNil {
			t.Errorf("library %q should not be open", lib)
		}
	}
}

func TestNewStateInvalidLimits(t *testing.T) {
	_, err := NewState(WithCallStackSize(0))
	if !errors.Is(err, ErrCreate) {
		t.Errorf("NewState() error = %v, want ErrCreate", err)
	}
}

func TestStateCall(t *testing.T) {
	state := newTestState(t)
	if err := state.L.DoString(`function add(a, b) return a + b, "done" end`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}

	results, err := state.CallGlobal("add", glua.LNumber(2), glua.LNumber(3))
	if err != nil {
		t.Fatalf("CallGlobal() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("CallGlobal() returned %d values, want 2", len(results))
	}
	if results[0] != glua.LNumber(5) || results[1] != glua.LString("done") {
		t.Errorf("CallGlobal() = %v", results)
	}
	if top := state.L.GetTop(); top != 0 {
		t.Errorf("stack top after call = %d, want 0", top)
	}
}

func TestStateCallErrors(t *testing.T) {
	state := newTestState(t)
	if err := state.L.DoString(`function boom() error("kaboom") end`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}

	_, err := state.CallGlobal("boom")
	if !errors.Is(err, ErrRuntime) || !strings.Contains(err.Error(), "kaboom") {
		t.Errorf("CallGlobal(boom) error = %v", err)
	}
	if _, err := state.CallGlobal("missing"); !errors.Is(err, ErrRuntime) {
		t.Errorf("CallGlobal(missing) error = %v", err)
	}
	if _, err := state.Call(glua.LString("x")); !errors.Is(err, ErrRuntime) {
		t.Errorf("Call(string) error = %v", err)
	}
}

func TestStateCallGoPanic(t *testing.T) {
	state := newTestState(t)
	fn := state.L.NewFunction(func(*glua.LState) int { panic("go failure") })

	_, err := state.Call(fn)
	if !errors.Is(err, ErrRuntime) {
		t.Errorf("Call() error = %v, want ErrRuntime", err)
	}
}

func TestStateExecutionTimeout(t *testing.T) {
	state := newTestState(t, WithExecutionTimeout(50*time.Millisecond))
	if err := state.L.DoString(`function spin() while true do end end`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}

	_, err := state.CallGlobal("spin")
	if !errors.Is(err, ErrExecutionTimeout) {
		t.Errorf("CallGlobal(spin) error = %v, want ErrExecutionTimeout", err)
	}
}

func TestStateRegisterModule(t *testing.T) {
	state := newTestState(t)
	state.RegisterModule("host", map[string]glua.LGFunction{
		"one": func(L *glua.LState) int { L.Push(glua.LNumber(1)); return 1 },
	})
	state.RegisterModule("host", map[string]glua.LGFunction{
		"two": func(L *glua.LState) int { L.Push(glua.LNumber(2)); return 1 },
	})

	if err := state.L.DoString(`total = host.one() + host.two()`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	if got := state.GetGlobal("total"); got != glua.LNumber(3) {
		t.Errorf("total = %v, want 3", got)
	}
}

func TestStateClose(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	if err := state.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := state.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if _, err := state.CallGlobal("x"); err == nil {
		t.Error("CallGlobal() on closed state should fail")
	}
	if state.GetGlobal("x") != glua.LNil {
		t.Error("GetGlobal() on closed state should be nil")
	}
}
