package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by this package.
const (
	measurementSensor = "sensor_readings"
	measurementLight  = "light_state"
)

// WriteSensorReading records one decoded sensor value.
//
// Parameters:
//   - object: ECHONET object code as text, e.g. "0x001101"
//   - measurement: Quantity name, e.g. "temperature", "humidity", "pressure"
//   - value: Decoded value in the quantity's natural unit
//
// Example:
//
//	client.WriteSensorReading("0x001101", "temperature", 21.5)
func (c *Client) WriteSensorReading(object, measurement string, value float64) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(sensorPoint(object, measurement, value, time.Now()))
}

// WriteLightState records a change of the LED matrix operating status.
func (c *Client) WriteLightState(object string, on bool) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(lightPoint(object, on, time.Now()))
}

// WritePoint writes an arbitrary point stamped with the current time.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}

func sensorPoint(object, measurement string, value float64, ts time.Time) *write.Point {
	return write.NewPoint(
		measurementSensor,
		map[string]string{
			"object":      object,
			"measurement": measurement,
		},
		map[string]any{
			"value": value,
		},
		ts,
	)
}

func lightPoint(object string, on bool, ts time.Time) *write.Point {
	return write.NewPoint(
		measurementLight,
		map[string]string{"object": object},
		map[string]any{"on": on},
		ts,
	)
}
