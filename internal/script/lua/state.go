package lua

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// Default limits for a Lua state.
const (
	DefaultCallStackSize   = 256
	DefaultRegistrySize    = 1024 * 20
	DefaultRegistryMaxSize = 1024 * 80
)

// State wraps a gopher-lua state with the sandbox and call helpers used by
// script interpreters.
//
// gopher-lua's LState is not goroutine-safe and State adds no locking around
// execution: Lua code calling into the host may re-enter the same state
// through a callback, so a lock held for the duration of a call would
// deadlock. The mutex only guards the closed flag.
type State struct {
	L *lua.LState

	mu     sync.Mutex
	closed bool

	callStackSize    int
	registryMaxSize  int
	executionTimeout time.Duration
	print            func(string)

	sandbox *Sandbox
}

// StateOption configures a State.
type StateOption func(*State)

// WithCallStackSize sets the Lua call stack depth.
func WithCallStackSize(n int) StateOption {
	return func(s *State) {
		s.callStackSize = n
	}
}

// WithRegistryMaxSize bounds the Lua registry (value stack) growth.
func WithRegistryMaxSize(n int) StateOption {
	return func(s *State) {
		s.registryMaxSize = n
	}
}

// WithExecutionTimeout bounds each top-level run and callback. Zero
// disables the deadline.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		s.executionTimeout = d
	}
}

// WithPrint routes the Lua print function to fn.
func WithPrint(fn func(string)) StateOption {
	return func(s *State) {
		s.print = fn
	}
}

// NewState creates a new sandboxed Lua state.
func NewState(opts ...StateOption) (state *State, err error) {
	state = &State{
		callStackSize:   DefaultCallStackSize,
		registryMaxSize: DefaultRegistryMaxSize,
	}
	for _, opt := range opts {
		opt(state)
	}
	if state.callStackSize <= 0 || state.registryMaxSize < 0 {
		return nil, fmt.Errorf("%w: invalid limits", ErrCreate)
	}

	defer func() {
		if r := recover(); r != nil {
			state, err = nil, fmt.Errorf("%w: %v", ErrCreate, r)
		}
	}()

	registrySize := min(DefaultRegistrySize, state.registryMaxSize)
	if state.registryMaxSize == 0 {
		registrySize = DefaultRegistrySize
	}
	L := lua.NewState(lua.Options{
		SkipOpenLibs:    true,
		CallStackSize:   state.callStackSize,
		RegistrySize:    registrySize,
		RegistryMaxSize: state.registryMaxSize,
	})
	state.L = L

	openSafeLibraries(L)

	state.sandbox = NewSandbox(L, state.print)
	state.sandbox.Install()

	return state, nil
}

// openSafeLibraries opens the standard libraries scripts may use.
// io, os, debug and package are not opened.
func openSafeLibraries(L *lua.LState) {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
		{lua.CoroutineLibName, lua.OpenCoroutine},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
}

// Call calls fn with the given arguments and returns its results.
// Returns an empty slice (not nil) if the function returns no values.
func (s *State) Call(fn lua.LValue, args ...lua.LValue) ([]lua.LValue, error) {
	if s.IsClosed() {
		return nil, ErrStateClosed
	}
	if fn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("%w: attempt to call a %s value", ErrRuntime, fn.Type())
	}

	stackTop := s.L.GetTop()
	s.L.Push(fn)
	for _, arg := range args {
		s.L.Push(arg)
	}

	if err := s.protect(func() error {
		return s.L.PCall(len(args), lua.MultRet, nil)
	}); err != nil {
		s.L.SetTop(stackTop)
		return nil, err
	}

	nRet := s.L.GetTop() - stackTop
	if nRet <= 0 {
		return []lua.LValue{}, nil
	}
	results := make([]lua.LValue, nRet)
	for i := 0; i < nRet; i++ {
		results[i] = s.L.Get(stackTop + i + 1)
	}
	s.L.Pop(nRet)

	return results, nil
}

// CallGlobal calls the global function name.
func (s *State) CallGlobal(name string, args ...lua.LValue) ([]lua.LValue, error) {
	fn := s.GetGlobal(name)
	if fn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("%w: function %q not found", ErrRuntime, name)
	}
	return s.Call(fn, args...)
}

// protect runs fn with panic recovery and, when configured, a deadline.
// Nested calls keep the deadline of the outermost call.
func (s *State) protect(fn func() error) (err error) {
	if s.executionTimeout > 0 && s.L.Context() == nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.executionTimeout)
		s.L.SetContext(ctx)
		defer func() {
			s.L.RemoveContext()
			cancel()
			if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				err = fmt.Errorf("%w after %s", ErrExecutionTimeout, s.executionTimeout)
			}
		}()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: lua panic: %v", ErrRuntime, r)
		}
	}()

	if err := fn(); err != nil {
		return fmt.Errorf("%w: %v", ErrRuntime, err)
	}
	return nil
}

// GetGlobal returns a global variable value.
func (s *State) GetGlobal(name string) lua.LValue {
	if s.IsClosed() {
		return lua.LNil
	}
	return s.L.GetGlobal(name)
}

// SetGlobal sets a global variable.
func (s *State) SetGlobal(name string, value lua.LValue) {
	if s.IsClosed() {
		return
	}
	s.L.SetGlobal(name, value)
}

// RegisterModule installs funcs as the global table name. An existing
// table of that name is extended.
func (s *State) RegisterModule(name string, funcs map[string]lua.LGFunction) *lua.LTable {
	if s.IsClosed() {
		return nil
	}
	mod, ok := s.L.GetGlobal(name).(*lua.LTable)
	if !ok {
		mod = s.L.NewTable()
		s.L.SetGlobal(name, mod)
	}
	s.L.SetFuncs(mod, funcs)
	return mod
}

// LuaState returns the underlying gopher-lua state.
func (s *State) LuaState() *lua.LState {
	return s.L
}

// Sandbox returns the sandbox installed in the state.
func (s *State) Sandbox() *Sandbox {
	return s.sandbox
}

// IsClosed returns true if the state has been closed.
func (s *State) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases all resources associated with the Lua state.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}
