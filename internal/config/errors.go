package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Errors returned by configuration operations.
var (
	// ErrValidationFailed indicates the configuration failed validation.
	ErrValidationFailed = errors.New("validation failed")

	// ErrDecode indicates the merged layers could not be decoded.
	ErrDecode = errors.New("invalid configuration value")
)

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Fields []FieldError
}

// FieldError describes one invalid field.
type FieldError struct {
	// Path is the configuration path (e.g. "scripts.debug").
	Path string
	// Rule is the failed validation rule.
	Rule string
	// Value is the rejected value.
	Value any
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s: failed %q (value %v)", f.Path, f.Rule, f.Value)
	}
	return "invalid configuration: " + strings.Join(parts, "; ")
}

// Unwrap returns ErrValidationFailed.
func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

func newValidationError(errs validator.ValidationErrors) *ValidationError {
	ve := &ValidationError{Fields: make([]FieldError, 0, len(errs))}
	for _, fe := range errs {
		ve.Fields = append(ve.Fields, FieldError{
			Path:  configPath(fe.Namespace()),
			Rule:  fe.Tag(),
			Value: fe.Value(),
		})
	}
	return ve
}

// configPath turns a validator namespace ("Config.scripts.debug") into a
// configuration path.
func configPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}
