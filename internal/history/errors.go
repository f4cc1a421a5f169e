package history

import "errors"

var (
	// ErrInvalidEvent is returned by Record for events without a concrete
	// object or a source.
	ErrInvalidEvent = errors.New("history: invalid event")

	// ErrRecorderStopped is returned when enqueueing after Stop.
	ErrRecorderStopped = errors.New("history: recorder stopped")

	// ErrQueueFull is returned when the recorder cannot keep up.
	ErrQueueFull = errors.New("history: queue full")
)
