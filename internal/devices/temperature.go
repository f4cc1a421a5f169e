package devices

import "github.com/nerrad567/echonet-sensehat/internal/sensehat"

// Temperature is the temperature sensor object (class 0x0011).
// The measured value is a signed 16-bit count of 0.1 C.
type Temperature struct {
	sensor
}

// NewTemperature binds a temperature object to the backend.
func NewTemperature(backend sensehat.Backend, logger Logger) *Temperature {
	return &Temperature{
		sensor: newSensor(TemperatureObject, "temperature", backend.ReadTemperature, EncodeTemperature, logger),
	}
}
