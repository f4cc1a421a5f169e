package devices

import "github.com/nerrad567/echonet-sensehat/internal/sensehat"

// AirPressure is the air pressure sensor object (class 0x002D).
// The measured value is 2 bytes, see EncodePressure.
type AirPressure struct {
	sensor
}

// NewAirPressure binds an air pressure object to the backend.
func NewAirPressure(backend sensehat.Backend, logger Logger) *AirPressure {
	return &AirPressure{
		sensor: newSensor(AirPressureObject, "air pressure", backend.ReadPressure, EncodePressure, logger),
	}
}
