package sensehat

import "fmt"

// HTS221 humidity sensor registers.
const (
	hts221Address = 0x5F
	hts221WhoAmI  = 0xBC

	hts221RegWhoAmI     = 0x0F
	hts221RegCtrl1      = 0x20
	hts221RegHumOutL    = 0x28
	hts221RegH0rHx2     = 0x30
	hts221RegH1rHx2     = 0x31
	hts221RegH0T0OutL   = 0x36
	hts221RegH1T0OutL   = 0x3A
	hts221AutoIncr      = 0x80
	hts221PowerOnBDU1Hz = 0x85 // PD=1, BDU=1, ODR=1Hz
)

// hts221Calibration holds the factory humidity calibration points.
type hts221Calibration struct {
	h0rH, h1rH   float64 // %RH
	h0Out, h1Out int16
}

// humidity interpolates a raw HUMIDITY_OUT value, clamped to 0-100 %RH.
func (c hts221Calibration) humidity(out int16) (float64, error) {
	if c.h1Out == c.h0Out {
		return 0, fmt.Errorf("%w: HTS221 calibration points are equal", ErrReadFailed)
	}
	h0, h1 := float64(c.h0Out), float64(c.h1Out)
	rh := c.h0rH + (float64(out)-h0)*(c.h1rH-c.h0rH)/(h1-h0)
	return min(max(rh, 0), 100), nil //nolint:mnd // percent bounds
}

// hts221 reads relative humidity.
type hts221 struct {
	dev *i2cDevice
	cal hts221Calibration
}

func openHTS221(bus int) (*hts221, error) {
	dev, err := openI2C(bus, hts221Address)
	if err != nil {
		return nil, err
	}
	id, err := dev.readReg(hts221RegWhoAmI)
	if err != nil {
		dev.Close()
		return nil, err
	}
	if id != hts221WhoAmI {
		dev.Close()
		return nil, fmt.Errorf("%w: HTS221 WHO_AM_I 0x%02X, want 0x%02X", ErrWrongDevice, id, hts221WhoAmI)
	}
	if err := dev.writeReg(hts221RegCtrl1, hts221PowerOnBDU1Hz); err != nil {
		dev.Close()
		return nil, fmt.Errorf("HTS221 power on: %w", err)
	}

	cal, err := readHTS221Calibration(dev)
	if err != nil {
		dev.Close()
		return nil, err
	}
	return &hts221{dev: dev, cal: cal}, nil
}

func readHTS221Calibration(dev *i2cDevice) (hts221Calibration, error) {
	h0, err := dev.readReg(hts221RegH0rHx2)
	if err != nil {
		return hts221Calibration{}, err
	}
	h1, err := dev.readReg(hts221RegH1rHx2)
	if err != nil {
		return hts221Calibration{}, err
	}
	h0Out, err := dev.readRegs(hts221RegH0T0OutL|hts221AutoIncr, 2)
	if err != nil {
		return hts221Calibration{}, err
	}
	h1Out, err := dev.readRegs(hts221RegH1T0OutL|hts221AutoIncr, 2)
	if err != nil {
		return hts221Calibration{}, err
	}
	return hts221Calibration{
		h0rH:  float64(h0) / 2,
		h1rH:  float64(h1) / 2,
		h0Out: le16(h0Out),
		h1Out: le16(h1Out),
	}, nil
}

func (s *hts221) humidity() (float64, error) {
	raw, err := s.dev.readRegs(hts221RegHumOutL|hts221AutoIncr, 2)
	if err != nil {
		return 0, err
	}
	return s.cal.humidity(le16(raw))
}

func (s *hts221) Close() error {
	return s.dev.Close()
}

// le16 decodes a little-endian two's complement register pair.
func le16(b []byte) int16 {
	return int16(uint16(b[1])<<8 | uint16(b[0])) //nolint:gosec // two's complement register
}
