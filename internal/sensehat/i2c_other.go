//go:build !linux

package sensehat

import "fmt"

type i2cDevice struct{}

func openI2C(bus, addr int) (*i2cDevice, error) {
	return nil, fmt.Errorf("%w: i2c-%d 0x%02X: I2C requires Linux", ErrDeviceNotFound, bus, addr)
}

func (d *i2cDevice) readRegs(byte, int) ([]byte, error) { return nil, ErrDeviceNotFound }
func (d *i2cDevice) readReg(byte) (byte, error) { return 0, ErrDeviceNotFound }
func (d *i2cDevice) writeReg(byte, byte) error { return ErrDeviceNotFound }
func (d *i2cDevice) Close() error { return nil }
