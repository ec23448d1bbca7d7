package pdf

import (
	"context"
	"errors"
	"fmt"

	"invoice-studio/internal/render"
)

// Converter turns a rendered invoice into PDF bytes. Implementations must
// honour ctx cancellation and return *ConversionError on failure.
type Converter interface {
	Backend() string
	Convert(ctx context.Context, doc *render.Document) ([]byte, error)
}

// ErrEmptyDocument is the permanent failure for a nil or blank document.
var ErrEmptyDocument = errors.New("document is empty")

// ConversionError classifies a backend failure. Transient failures (timeout,
// backend unavailable) may be retried with the same document; permanent ones
// will fail again.
type ConversionError struct {
	Backend   string
	Transient bool
	Err       error
}

func (e *ConversionError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("%s pdf conversion failed (%s): %v", e.Backend, kind, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retryable conversion failure.
func IsTransient(err error) bool {
	var ce *ConversionError
	return errors.As(err, &ce) && ce.Transient
}

func transient(backend string, err error) error {
	return &ConversionError{Backend: backend, Transient: true, Err: err}
}

func permanent(backend string, err error) error {
	return &ConversionError{Backend: backend, Err: err}
}

// classify treats context expiry as transient and everything else as the
// caller decides.
func classify(backend string, err error, otherwiseTransient bool) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return transient(backend, err)
	}
	return &ConversionError{Backend: backend, Transient: otherwiseTransient, Err: err}
}

// New returns the converter for a configured backend name.
func New(backend, chromePath, fontPath string, maxConcurrent int64) (Converter, error) {
	switch backend {
	case "chrome":
		return NewChromeConverter(chromePath, maxConcurrent), nil
	case "fpdf":
		return NewFPDFConverter(fontPath), nil
	}
	return nil, fmt.Errorf("unknown pdf backend %q", backend)
}
