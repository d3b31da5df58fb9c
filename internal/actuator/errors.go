package actuator

import (
	"errors"
	"fmt"
)

var (
	// ErrStateConflict is the benign outcome of asking an actuator for the
	// state it is already in. Callers log it and carry on.
	ErrStateConflict = errors.New("actuator: already in requested state")

	// ErrAlreadyOn is returned by TurnOn when the actuator is on.
	ErrAlreadyOn = fmt.Errorf("%w: already on", ErrStateConflict)

	// ErrAlreadyOff is returned by TurnOff when the actuator is off.
	ErrAlreadyOff = fmt.Errorf("%w: already off", ErrStateConflict)

	// ErrDriverFailed wraps an error from the underlying relay driver.
	ErrDriverFailed = errors.New("actuator: driver failed")
)
