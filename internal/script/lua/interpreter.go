package lua

import (
	"context"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// Interpreter is one isolated namespace plus one compiled source chunk.
// The chunk is executed at most once.
type Interpreter struct {
	*State

	name     string
	chunk    *lua.LFunction
	executed bool
}

// NewInterpreter creates an interpreter whose chunk is reported as name in
// error messages and tracebacks.
func NewInterpreter(name string, opts ...StateOption) (*Interpreter, error) {
	state, err := NewState(opts...)
	if err != nil {
		return nil, err
	}
	return &Interpreter{State: state, name: name}, nil
}

// Name returns the chunk name.
func (i *Interpreter) Name() string {
	return i.name
}

// Bind installs funcs as the global table namespace. Bindings must be
// installed before the chunk runs.
func (i *Interpreter) Bind(namespace string, funcs map[string]lua.LGFunction) *lua.LTable {
	return i.RegisterModule(namespace, funcs)
}

// Compile parses src. Nothing runs; a syntax error wraps ErrSyntax.
func (i *Interpreter) Compile(src string) error {
	if i.IsClosed() {
		return ErrStateClosed
	}
	if i.chunk != nil || i.executed {
		return ErrAlreadyExecuted
	}
	fn, err := i.L.Load(strings.NewReader(src), i.name)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	i.chunk = fn
	return nil
}

// Run executes the compiled chunk. ctx may carry a deadline or be
// cancelled to abort the run; cancellation is observed between Lua
// instructions.
func (i *Interpreter) Run(ctx context.Context) error {
	if i.IsClosed() {
		return ErrStateClosed
	}
	if i.executed {
		return ErrAlreadyExecuted
	}
	if i.chunk == nil {
		return ErrNotCompiled
	}
	chunk := i.chunk
	i.chunk = nil
	i.executed = true

	if ctx != nil && ctx.Done() != nil {
		i.L.SetContext(ctx)
		defer i.L.RemoveContext()
	}

	_, err := i.Call(chunk)
	if err != nil && ctx != nil && ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrExecutionTimeout, ctx.Err())
	}
	return err
}

// Executed reports whether the chunk has run.
func (i *Interpreter) Executed() bool {
	return i.executed
}
