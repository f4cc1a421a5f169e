package devices

import "github.com/nerrad567/echonet-sensehat/internal/echonet"

// Device object codes, instance 1.
const (
	AirPressureObject echonet.ObjectCode = 0x002D01
	HumidityObject    echonet.ObjectCode = 0x001201
	TemperatureObject echonet.ObjectCode = 0x001101
	MonoLightObject   echonet.ObjectCode = 0x029101
)

// Property codes used by the device objects.
const (
	EPCOperatingStatus byte = echonet.EPCOperatingStatus
	EPCMeasuredValue   byte = 0xE0
)

// Operating status values.
const (
	StatusOn  byte = echonet.StatusOn
	StatusOff byte = echonet.StatusOff
)
