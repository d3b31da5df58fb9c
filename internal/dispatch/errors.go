package dispatch

import "errors"

var (
	// ErrTopicRegistered is returned by Register for a topic that already has a handler.
	ErrTopicRegistered = errors.New("dispatch: topic already registered")

	// ErrTopicNotRegistered is returned by Unregister for an unknown topic.
	ErrTopicNotRegistered = errors.New("dispatch: topic not registered")

	// ErrAlreadyRunning is returned by a second call to Start or a concurrent Run.
	ErrAlreadyRunning = errors.New("dispatch: already running")

	// ErrStopped is returned by operations attempted after Stop.
	ErrStopped = errors.New("dispatch: stopped")

	// ErrInvalidRegistration is returned for an empty topic or nil handler.
	ErrInvalidRegistration = errors.New("dispatch: topic and handler are required")
)
