package imaging

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when the input is neither a path nor a byte buffer.
	ErrInvalidInput = errors.New("input must be a file path or raw image bytes")

	// ErrNotFound is returned when an input path does not exist.
	ErrNotFound = errors.New("image file not found")

	// ErrEmptyImage is returned for a zero-length image payload.
	ErrEmptyImage = errors.New("image data is empty")

	// ErrReencodeFailed is returned when the codec cannot convert the image.
	ErrReencodeFailed = errors.New("image re-encode failed")
)

// ImageError wraps normalizer failures with the operation that failed.
type ImageError struct {
	Op      string
	Err     error
	Details string
}

func (e *ImageError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("imaging: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("imaging: %s failed: %v", e.Op, e.Err)
}

func (e *ImageError) Unwrap() error {
	return e.Err
}

func wrap(op string, err error, details string) error {
	if err == nil {
		return nil
	}
	var imgErr *ImageError
	if errors.As(err, &imgErr) {
		return err
	}
	return &ImageError{Op: op, Err: err, Details: details}
}
