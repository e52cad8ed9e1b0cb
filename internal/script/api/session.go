package api

// Registration holds the arguments of the register operation.
type Registration struct {
	Name         string `validate:"required,max=128,excludesrune=/"`
	Author       string
	Version      string
	License      string
	Description  string
	ShutdownFunc string
	Charset      string
}

// Session is the load or script context a namespace is bound to. The
// script registry implements it.
type Session interface {
	// Name returns the registered script name, or "" before registration.
	Name() string

	// Register records the script identity. It reports whether the
	// registration was accepted and emits its own diagnostics when not.
	Register(r Registration) bool

	// SetCharset changes the declared script charset.
	SetCharset(charset string)

	// Track records a host resource owned by the script, released when
	// the script is unloaded. Untrack forgets it.
	Track(ref any)
	Untrack(ref any)

	// Enter makes the script current for the duration of a callback.
	Enter() (leave func())
}
