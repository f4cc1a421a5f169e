//go:build linux

package sensehat

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// i2cSlave is the I2C_SLAVE ioctl request from linux/i2c-dev.h.
const i2cSlave = 0x0703

// i2cDevice is one slave address on a Linux I2C character device.
type i2cDevice struct {
	f    *os.File
	addr int
}

func openI2C(bus, addr int) (*i2cDevice, error) {
	path := fmt.Sprintf("/dev/i2c-%d", bus)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDeviceNotFound, path, err)
	}
	if err := unix.IoctlSetInt(int(f.Fd()), i2cSlave, addr); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: select slave 0x%02X on %s: %w", ErrDeviceNotFound, addr, path, err)
	}
	return &i2cDevice{f: f, addr: addr}, nil
}

// readRegs reads n consecutive registers starting at reg. The caller sets
// the auto-increment bit when the chip needs it.
func (d *i2cDevice) readRegs(reg byte, n int) ([]byte, error) {
	if _, err := d.f.Write([]byte{reg}); err != nil {
		return nil, fmt.Errorf("%w: 0x%02X reg 0x%02X: %w", ErrReadFailed, d.addr, reg, err)
	}
	buf := make([]byte, n)
	if _, err := d.f.Read(buf); err != nil {
		return nil, fmt.Errorf("%w: 0x%02X reg 0x%02X: %w", ErrReadFailed, d.addr, reg, err)
	}
	return buf, nil
}

func (d *i2cDevice) readReg(reg byte) (byte, error) {
	buf, err := d.readRegs(reg, 1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (d *i2cDevice) writeReg(reg, value byte) error {
	if _, err := d.f.Write([]byte{reg, value}); err != nil {
		return fmt.Errorf("write 0x%02X reg 0x%02X: %w", d.addr, reg, err)
	}
	return nil
}

func (d *i2cDevice) Close() error {
	return d.f.Close()
}
