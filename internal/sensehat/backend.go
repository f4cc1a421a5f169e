package sensehat

import (
	"fmt"
	"strconv"
	"strings"
)

// Backend is the sensor and display capability of the board.
type Backend interface {
	// ReadTemperature returns the temperature in degrees Celsius.
	ReadTemperature() (float64, error)

	// ReadHumidity returns the relative humidity in percent.
	ReadHumidity() (float64, error)

	// ReadPressure returns the air pressure in hectopascals.
	ReadPressure() (float64, error)

	// DisplayText shows text on the LED matrix.
	DisplayText(text string, fg, bg Colour) error

	// DisplayClear turns every LED off.
	DisplayClear() error

	Close() error
}

// Colour is a 24-bit RGB colour.
type Colour struct {
	R, G, B uint8
}

// Common colours.
var (
	Black = Colour{}
	White = Colour{R: 0xFF, G: 0xFF, B: 0xFF}
)

// ParseColour parses "RRGGBB" or "#RRGGBB".
func ParseColour(s string) (Colour, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 { //nolint:mnd // RRGGBB
		return Colour{}, fmt.Errorf("%w: %q", ErrInvalidColour, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Colour{}, fmt.Errorf("%w: %q: %w", ErrInvalidColour, s, err)
	}
	return Colour{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil //nolint:gosec // masked to 8 bits
}

// RGB565 packs the colour into the framebuffer pixel format.
func (c Colour) RGB565() uint16 {
	return uint16(c.R>>3)<<11 | uint16(c.G>>2)<<5 | uint16(c.B>>3)
}

// String renders the colour as "#RRGGBB".
func (c Colour) String() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}
