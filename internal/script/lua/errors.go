package lua

import "errors"

var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrCreate is returned when the runtime refuses to allocate a state.
	ErrCreate = errors.New("unable to create lua state")

	// ErrSyntax wraps compile failures.
	ErrSyntax = errors.New("lua syntax error")

	// ErrRuntime wraps errors raised while running Lua code.
	ErrRuntime = errors.New("lua runtime error")

	// ErrExecutionTimeout is returned when execution exceeds its deadline.
	ErrExecutionTimeout = errors.New("lua execution timeout")

	// ErrNotCompiled is returned by Run before Compile succeeded.
	ErrNotCompiled = errors.New("no compiled chunk")

	// ErrAlreadyExecuted is returned by Run on an interpreter whose chunk
	// already ran.
	ErrAlreadyExecuted = errors.New("chunk already executed")
)
