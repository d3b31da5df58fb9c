package control

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest is wrapped by every DecodeError.
	ErrInvalidRequest = errors.New("control: invalid request")

	// ErrInvalidSchedule is returned when a decoded schedule cannot be
	// applied, e.g. an end_time that is not after the start.
	ErrInvalidSchedule = errors.New("control: invalid schedule")
)

// Reasons attached to a DecodeError.
var (
	errMissing     = errors.New("field is required")
	errForbidden   = errors.New("field is not allowed here")
	errUnknown     = errors.New("unknown field")
	errExclusive   = errors.New("end_time and duration are mutually exclusive")
	errNotUTF8     = errors.New("payload is not valid UTF-8")
	errTrailing    = errors.New("unexpected data after JSON object")
	errNotPositive = errors.New("must be greater than zero")
	errNegative    = errors.New("must not be negative")
	errTooLarge    = fmt.Errorf("must not exceed %d", MaxVolumeML)
)

// DecodeError reports a payload that does not form a valid control request.
// Field is the dotted JSON path of the offending field, empty when the
// payload as a whole is malformed.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: %v", ErrInvalidRequest, e.Err)
	}
	return fmt.Sprintf("%v: %s: %v", ErrInvalidRequest, e.Field, e.Err)
}

// Unwrap returns the underlying reason.
func (e *DecodeError) Unwrap() error { return e.Err }

// Is reports ErrInvalidRequest as a match so callers can test any decode
// failure with errors.Is(err, control.ErrInvalidRequest).
func (e *DecodeError) Is(target error) bool { return target == ErrInvalidRequest }

func fieldError(field string, err error) *DecodeError {
	return &DecodeError{Field: field, Err: err}
}
