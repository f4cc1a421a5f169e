package devices

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrDecodingFailed is returned when a payload has the wrong width.
var ErrDecodingFailed = errors.New("devices: decoding failed")

// Payload encoding constants.
const (
	// pressureFullScale maps hPa onto the 16-bit measured value range.
	pressureFullScale = 6553.3
	pressureMaxCode   = 65533

	humidityMax = 100

	// Temperature is carried in 0.1 C units.
	temperatureScale   = 10
	temperatureMin     = -2732 // absolute zero
	temperatureMax     = 32766
	temperatureEpsilon = 1e-9

	pressureWidth    = 2
	humidityWidth    = 1
	temperatureWidth = 2
)

// EncodePressure encodes hectopascals as round(hPa/6553.3*65533), big-endian.
func EncodePressure(hPa float64) []byte {
	v := math.Round(hPa / pressureFullScale * pressureMaxCode)
	v = min(max(v, 0), math.MaxUint16)
	return binary.BigEndian.AppendUint16(nil, uint16(v))
}

// DecodePressure reverses EncodePressure.
func DecodePressure(data []byte) (float64, error) {
	if len(data) != pressureWidth {
		return 0, fmt.Errorf("%w: pressure needs %d bytes, got %d", ErrDecodingFailed, pressureWidth, len(data))
	}
	return float64(binary.BigEndian.Uint16(data)) * pressureFullScale / pressureMaxCode, nil
}

// EncodeHumidity truncates a relative humidity to a whole percent, 0-100.
func EncodeHumidity(percent float64) []byte {
	v := min(max(math.Trunc(percent), 0), humidityMax)
	return []byte{uint8(v)}
}

// DecodeHumidity reverses EncodeHumidity.
func DecodeHumidity(data []byte) (float64, error) {
	if len(data) != humidityWidth {
		return 0, fmt.Errorf("%w: humidity needs %d byte, got %d", ErrDecodingFailed, humidityWidth, len(data))
	}
	return float64(data[0]), nil
}

// EncodeTemperature encodes degrees Celsius as signed 16-bit tenths,
// truncated toward zero and clamped to -273.2..3276.6.
func EncodeTemperature(celsius float64) []byte {
	// Float noise only: 2.3*10 is 22.999999999999996 and must give 23.
	tenths := celsius * temperatureScale
	tenths = math.Trunc(tenths + math.Copysign(temperatureEpsilon, tenths))
	v := min(max(tenths, temperatureMin), temperatureMax)
	return binary.BigEndian.AppendUint16(nil, uint16(int16(v))) //nolint:gosec // clamped to int16 range
}

// DecodeTemperature reverses EncodeTemperature.
func DecodeTemperature(data []byte) (float64, error) {
	if len(data) != temperatureWidth {
		return 0, fmt.Errorf("%w: temperature needs %d bytes, got %d", ErrDecodingFailed, temperatureWidth, len(data))
	}
	return float64(int16(binary.BigEndian.Uint16(data))) / temperatureScale, nil //nolint:gosec // two's complement
}

// decodeUint reads a big-endian unsigned integer of 1 to 4 bytes.
func decodeUint(data []byte) (uint32, error) {
	if len(data) == 0 || len(data) > 4 { //nolint:mnd // uint32 width
		return 0, fmt.Errorf("%w: integer needs 1-4 bytes, got %d", ErrDecodingFailed, len(data))
	}
	var v uint32
	for _, b := range data {
		v = v<<8 | uint32(b)
	}
	return v, nil
}
