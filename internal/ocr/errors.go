package ocr

import (
	"errors"
	"fmt"
)

// Common OCR processing errors
var (
	// ErrDependency is returned when no OCR engine is configured or the configured
	// engine cannot be reached. Recognition is a required capability.
	ErrDependency = errors.New("no OCR engine available")

	// ErrUnsupportedEngine is returned for an engine name NewEngine does not know.
	ErrUnsupportedEngine = errors.New("unsupported OCR engine")

	// ErrOCRFailed is returned when the engine fails to recognize the image.
	ErrOCRFailed = errors.New("OCR processing failed")

	// ErrMissingCredentials is returned when a cloud engine has no usable
	// GOOGLE_APPLICATION_CREDENTIALS, GOOGLE_CREDENTIALS or default credentials.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")

	// ErrInvalidConfiguration is returned when an engine is missing required settings.
	ErrInvalidConfiguration = errors.New("invalid OCR engine configuration")
)

// OCRError wraps errors with additional context about the OCR processing failure.
type OCRError struct {
	// Op is the operation that failed (e.g., "Extract", "NewSession").
	Op string

	// Engine is the name of the engine involved, if known.
	Engine string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *OCRError) Error() string {
	op := e.Op
	if e.Engine != "" {
		op = fmt.Sprintf("%s (%s)", e.Op, e.Engine)
	}
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *OCRError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *OCRError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewOCRError creates a new OCRError with the specified operation and underlying error.
func NewOCRError(op string, err error, details string) *OCRError {
	return &OCRError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapOCRError wraps an error as an OCRError if it isn't already one.
func WrapOCRError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var ocrErr *OCRError
	if errors.As(err, &ocrErr) {
		return err // Already wrapped
	}

	return NewOCRError(op, err, details)
}

// wrapEngineError is WrapOCRError that also records the engine name.
func wrapEngineError(op, engine string, err error, details string) error {
	wrapped := WrapOCRError(op, err, details)
	var ocrErr *OCRError
	if errors.As(wrapped, &ocrErr) && ocrErr.Engine == "" {
		ocrErr.Engine = engine
	}
	return wrapped
}
