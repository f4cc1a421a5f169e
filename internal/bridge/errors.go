package bridge

import "errors"

var (
	ErrNoMQTT       = errors.New("bridge: MQTT client is required")
	ErrNoDispatcher = errors.New("bridge: dispatcher is required")
	ErrNoSinks      = errors.New("bridge: telemetry needs at least one sink")
)

// Error codes carried in AckError.Code.
const (
	ErrCodeInvalidCommand = "INVALID_COMMAND"
	ErrCodeInvalidPayload = "INVALID_PAYLOAD"
	ErrCodeNotConfigured  = "NOT_CONFIGURED"
	ErrCodeRejected       = "REJECTED"
	ErrCodeProtocolError  = "PROTOCOL_ERROR"
)

// ErrReadRejected is returned when a sensor answers a Get with an SNA.
var ErrReadRejected = errors.New("bridge: read rejected")
