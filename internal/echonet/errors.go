package echonet

import "errors"

// Domain errors for the echonet package.
var (
	// ErrInvalidFrame is returned when a received frame is malformed.
	ErrInvalidFrame = errors.New("echonet: invalid frame")

	// ErrEncodingFailed is returned when a frame cannot be encoded.
	ErrEncodingFailed = errors.New("echonet: encoding failed")

	// ErrInvalidObject is returned for an object code that cannot be registered.
	ErrInvalidObject = errors.New("echonet: invalid object code")

	// ErrDuplicateObject is returned when an object code is registered twice.
	ErrDuplicateObject = errors.New("echonet: object already registered")

	// ErrNodeRunning is returned when registering devices on a started node.
	ErrNodeRunning = errors.New("echonet: node already running")

	// ErrNotRunning is returned when stopping or sending on a node that is not started.
	ErrNotRunning = errors.New("echonet: node not running")

	// ErrTransportFailed is returned when the transport cannot be opened or written.
	ErrTransportFailed = errors.New("echonet: transport failed")
)
