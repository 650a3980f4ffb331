package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure surfaced by the service matches exactly one of
// these through errors.Is.
var (
	ErrExternalFetch   = errors.New("external fetch failed")
	ErrStore           = errors.New("store failure")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Sentinel errors for validation failures. They all classify as
// ErrInvalidArgument once wrapped in a ValidationError.
var (
	ErrEmptyField     = errors.New("must not be empty")
	ErrFieldTooLong   = errors.New("too long")
	ErrYearOutOfRange = errors.New("year out of range")
	ErrNotPositive    = errors.New("must be positive")
	ErrEmptyPatch     = errors.New("no properties to update")
)

// OpError records the operation that failed, its kind and the cause.
type OpError struct {
	Op   string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// FetchError wraps err as an ErrExternalFetch failure of op. Nil stays nil.
func FetchError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Kind: ErrExternalFetch, Err: err}
}

// StoreError wraps err as an ErrStore failure of op. Nil stays nil.
func StoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Kind: ErrStore, Err: err}
}

// InvalidArgument builds an ErrInvalidArgument failure with a formatted cause.
func InvalidArgument(op, format string, args ...any) error {
	return &OpError{Op: op, Kind: ErrInvalidArgument, Err: fmt.Errorf(format, args...)}
}

// ValidationError wraps a sentinel with context.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Field, e.Wrapped, e.Value)
}

func (e *ValidationError) Unwrap() []error { return []error{e.Wrapped, ErrInvalidArgument} }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}

// KindName returns a short label for the kind of err, used in logs and
// metric labels.
func KindName(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrExternalFetch):
		return "external_fetch"
	case errors.Is(err, ErrStore):
		return "store"
	default:
		return "internal"
	}
}
