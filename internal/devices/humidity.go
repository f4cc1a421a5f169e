package devices

import "github.com/nerrad567/echonet-sensehat/internal/sensehat"

// Humidity is the humidity sensor object (class 0x0012).
// The measured value is 1 byte of whole percent.
type Humidity struct {
	sensor
}

// NewHumidity binds a humidity object to the backend.
func NewHumidity(backend sensehat.Backend, logger Logger) *Humidity {
	return &Humidity{
		sensor: newSensor(HumidityObject, "humidity", backend.ReadHumidity, EncodeHumidity, logger),
	}
}
