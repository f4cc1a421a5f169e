package devices

import (
	"fmt"

	"github.com/nerrad567/echonet-sensehat/internal/echonet"
)

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// sensor is the request handling shared by the read-only sensor objects.
type sensor struct {
	code   echonet.ObjectCode
	name   string
	read   func() (float64, error)
	encode func(float64) []byte
	logger Logger
}

func newSensor(code echonet.ObjectCode, name string, read func() (float64, error), encode func(float64) []byte, logger Logger) sensor {
	if logger == nil {
		logger = noopLogger{}
	}
	return sensor{code: code, name: name, read: read, encode: encode, logger: logger}
}

// Code returns the object code the sensor answers for.
func (s *sensor) Code() echonet.ObjectCode {
	return s.code
}

// HandleProperty implements echonet.RequestHandler.
//
// Operating status reads answer ON without touching the backend. Measured
// value reads query the backend and encode the reading. Writes are rejected.
func (s *sensor) HandleProperty(deoj echonet.ObjectCode, esv echonet.ESV, prop echonet.Property) (echonet.Property, bool) {
	if deoj != s.code || !esv.IsRead() {
		return prop, false
	}

	switch prop.Code {
	case EPCOperatingStatus:
		return echonet.Property{Code: prop.Code, Data: []byte{StatusOn}}, true

	case EPCMeasuredValue:
		value, err := s.read()
		if err != nil {
			s.logger.Warn("sensor read failed", "object", s.name, "error", err)
			return prop, false
		}
		data := s.encode(value)
		s.logger.Debug(s.name+" measured value", "value", value, "edt", fmt.Sprintf("0x%X", data))
		return echonet.Property{Code: prop.Code, Data: data}, true
	}

	return prop, false
}
