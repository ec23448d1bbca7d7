package invoice

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every validation failure also matches ErrInvalidInput via
// errors.Is, so callers that only care about "bad input vs. everything else"
// can check a single value.
var (
	ErrInvalidInput = errors.New("invalid input")

	// ErrTemplateNotFound is returned when a template name has no registered renderer.
	ErrTemplateNotFound = errors.New("template not found")

	ErrNoItems             = errors.New("invoice requires at least one item")
	ErrInvalidItem         = errors.New("invalid line item")
	ErrNonFinite           = errors.New("numeric value must be finite")
	ErrOutOfRange          = errors.New("numeric value out of range")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrInvalidDiscount     = errors.New("invalid discount")
	ErrInvalidColor        = errors.New("invalid color")
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidImage        = errors.New("image must be an embedded data URL")
	ErrMissingField        = errors.New("required field missing")
)

// ValidationError wraps a sentinel with the offending field and a
// human-readable detail.
type ValidationError struct {
	Field   string
	Err     error
	Details string
}

func (e *ValidationError) Error() string {
	msg := e.Err.Error()
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Details != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Details)
	}
	return msg
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrInvalidInput, e.Err}
}

func invalid(field string, err error, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Err: err, Details: fmt.Sprintf(format, args...)}
}
