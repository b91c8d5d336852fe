package envelope

import (
	"errors"
	"fmt"
)

var (
	// ErrParse is returned when the input is not a JSON object.
	ErrParse = errors.New("invalid Base64Plus string: not valid JSON")

	// ErrSchema is returned when a required field is missing or malformed.
	ErrSchema = errors.New("invalid Base64Plus string: schema violation")
)

// DecodeError wraps codec failures with the operation and offending detail.
type DecodeError struct {
	Op      string
	Err     error
	Details string
}

func (e *DecodeError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("envelope: %s failed: %v: %s", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("envelope: %s failed: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func newDecodeError(op string, err error, details string) *DecodeError {
	return &DecodeError{Op: op, Err: err, Details: details}
}
