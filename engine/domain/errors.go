package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for validation and corpus failures.
var (
	ErrInvalidDestination = errors.New("invalid destination")
	ErrDestinationTooLong = errors.New("destination too long")
	ErrSuspiciousInput    = errors.New("input contains suspicious content")

	// ErrNoCorpus signals that zero usable sources were fetched for a
	// destination. The orchestrator substitutes a fallback message
	// instead of feeding an empty context downstream.
	ErrNoCorpus = errors.New("no corpus sources available")
)

// ValidationError wraps a sentinel with context.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
