package core

import (
	"errors"
	"fmt"
)

// Sentinels for the three recoverable error kinds. Typed errors below match
// them with errors.Is so callers can branch on kind without type switches.
var (
	ErrValidation = errors.New("validation error")
	ErrParse      = errors.New("parse error")
	ErrFormat     = errors.New("format error")
)

// ValidationError reports a missing or malformed field on manual entry.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ParseError reports quick-add text that does not have the "<name> <amount>" shape.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q: %s", e.Input, e.Reason)
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// FormatError reports an import file that is not a usable backup.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid backup format: %s: %v", e.Reason, e.Err)
	}
	return "invalid backup format: " + e.Reason
}

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

func (e *FormatError) Unwrap() error { return e.Err }

// NewValidationError is a shorthand used by the store and handlers.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
