package sensehat

import "fmt"

// LPS25H pressure sensor registers.
const (
	lps25hAddress = 0x5C
	lps25hWhoAmI  = 0xBD

	lps25hRegWhoAmI   = 0x0F
	lps25hRegCtrl1    = 0x20
	lps25hRegPressXL  = 0x28
	lps25hRegTempL    = 0x2B
	lps25hAutoIncr    = 0x80
	lps25hPowerOn1Hz  = 0x90 // PD=1, ODR=1Hz
	lps25hPressScale  = 4096.0
	lps25hTempOffset  = 42.5
	lps25hTempScale   = 480.0
	lps25hPressLength = 3
	lps25hTempLength  = 2
)

// lps25h reads pressure and temperature.
type lps25h struct {
	dev *i2cDevice
}

func openLPS25H(bus int) (*lps25h, error) {
	dev, err := openI2C(bus, lps25hAddress)
	if err != nil {
		return nil, err
	}
	id, err := dev.readReg(lps25hRegWhoAmI)
	if err != nil {
		dev.Close()
		return nil, err
	}
	if id != lps25hWhoAmI {
		dev.Close()
		return nil, fmt.Errorf("%w: LPS25H WHO_AM_I 0x%02X, want 0x%02X", ErrWrongDevice, id, lps25hWhoAmI)
	}
	if err := dev.writeReg(lps25hRegCtrl1, lps25hPowerOn1Hz); err != nil {
		dev.Close()
		return nil, fmt.Errorf("LPS25H power on: %w", err)
	}
	return &lps25h{dev: dev}, nil
}

func (s *lps25h) pressure() (float64, error) {
	raw, err := s.dev.readRegs(lps25hRegPressXL|lps25hAutoIncr, lps25hPressLength)
	if err != nil {
		return 0, err
	}
	return lps25hPressure(raw), nil
}

func (s *lps25h) temperature() (float64, error) {
	raw, err := s.dev.readRegs(lps25hRegTempL|lps25hAutoIncr, lps25hTempLength)
	if err != nil {
		return 0, err
	}
	return lps25hTemperature(raw), nil
}

func (s *lps25h) Close() error {
	return s.dev.Close()
}

// lps25hPressure converts PRESS_OUT_XL/L/H to hPa.
func lps25hPressure(raw []byte) float64 {
	v := int32(raw[2])<<16 | int32(raw[1])<<8 | int32(raw[0])
	if v&0x800000 != 0 {
		v -= 1 << 24
	}
	return float64(v) / lps25hPressScale
}

// lps25hTemperature converts TEMP_OUT_L/H to degrees Celsius.
func lps25hTemperature(raw []byte) float64 {
	v := int16(uint16(raw[1])<<8 | uint16(raw[0])) //nolint:gosec // two's complement register
	return lps25hTempOffset + float64(v)/lps25hTempScale
}
