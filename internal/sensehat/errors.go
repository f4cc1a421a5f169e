package sensehat

import "errors"

// Domain errors for the sensehat package.
var (
	// ErrDeviceNotFound is returned when a sensor or the framebuffer is absent.
	ErrDeviceNotFound = errors.New("sensehat: device not found")

	// ErrWrongDevice is returned when a WHO_AM_I register does not match.
	ErrWrongDevice = errors.New("sensehat: unexpected device identity")

	// ErrReadFailed is returned when a sensor read fails.
	ErrReadFailed = errors.New("sensehat: read failed")

	// ErrDisplayFailed is returned when the LED matrix cannot be written.
	ErrDisplayFailed = errors.New("sensehat: display write failed")

	// ErrInvalidColour is returned for a malformed RRGGBB colour.
	ErrInvalidColour = errors.New("sensehat: invalid colour")

	// ErrClosed is returned by operations on a closed backend.
	ErrClosed = errors.New("sensehat: backend closed")
)
