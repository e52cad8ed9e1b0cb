package api

import "errors"

var (
	// ErrNotInitialized is reported when a bound operation other than
	// register is called before the script registered itself.
	ErrNotInitialized = errors.New("script is not initialized")

	// ErrWrongArguments is reported when a bound operation is called with
	// the wrong number of arguments.
	ErrWrongArguments = errors.New("wrong arguments")
)
