package script

import (
	"errors"
	"fmt"
)

// Load and lifecycle errors.
var (
	// ErrNotFound is returned when the script source cannot be located or read.
	ErrNotFound = errors.New("script not found")

	// ErrResourceExhausted is returned when no interpreter can be created.
	ErrResourceExhausted = errors.New("unable to create interpreter")

	// ErrCompile is returned when the source does not compile.
	ErrCompile = errors.New("compile error")

	// ErrRuntimeFault is returned when top-level execution raised an error.
	ErrRuntimeFault = errors.New("runtime fault")

	// ErrRegistrationMissing is returned when a script never registered.
	ErrRegistrationMissing = errors.New("registration missing")

	// ErrAlreadyRegistered is returned when a script name is taken.
	ErrAlreadyRegistered = errors.New("script already registered")

	// ErrBusy is returned when a load or unload is requested while another
	// load attempt is in flight.
	ErrBusy = errors.New("controller busy")

	// ErrScriptNotLoaded is returned when unloading an unknown script.
	ErrScriptNotLoaded = errors.New("script not loaded")
)

// LoadError describes a failed load attempt.
type LoadError struct {
	Path  string
	Name  string
	Phase Phase
	Kind  error
	Err   error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	target := e.Path
	if e.Name != "" {
		target = fmt.Sprintf("%s (%s)", e.Name, e.Path)
	}
	if e.Err != nil {
		return fmt.Sprintf("load %s: %v during %s: %v", target, e.Kind, e.Phase, e.Err)
	}
	return fmt.Sprintf("load %s: %v during %s", target, e.Kind, e.Phase)
}

// Unwrap returns the kind and the underlying cause.
func (e *LoadError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
