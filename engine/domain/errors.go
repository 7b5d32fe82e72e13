package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for validation failures.
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidOutput = errors.New("invalid output")
)

// ValidationError wraps a sentinel with the offending field.
type ValidationError struct {
	Field   string
	Value   string
	Rule    string
	Wrapped error
}

func (e *ValidationError) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("validation: %s: %s (value=%q, rule=%s)", e.Wrapped, e.Field, e.Value, e.Rule)
	}
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
