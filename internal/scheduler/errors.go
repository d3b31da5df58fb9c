package scheduler

import "errors"

var (
	// ErrAlreadyRunning is returned by Start or Run when the loop is already active.
	ErrAlreadyRunning = errors.New("scheduler: already running")

	// ErrStopped is returned by Start or Run after Stop has been called.
	ErrStopped = errors.New("scheduler: stopped")

	// ErrNilAction is returned by Add for an event without an action.
	ErrNilAction = errors.New("scheduler: event has no action")
)
