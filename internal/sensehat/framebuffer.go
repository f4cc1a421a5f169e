package sensehat

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LED matrix geometry.
const (
	matrixSize   = 8
	matrixPixels = matrixSize * matrixSize

	// framebufferName is the driver name reported in sysfs.
	framebufferName = "RPi-Sense FB"
)

// Frame is one image for the LED matrix, row-major from the top left.
type Frame [matrixPixels]Colour

// findFramebuffer returns the /dev/fbN node backed by the Sense HAT driver.
func findFramebuffer(sysRoot, devRoot string) (string, error) {
	names, err := filepath.Glob(filepath.Join(sysRoot, "fb*", "name"))
	if err != nil {
		return "", fmt.Errorf("%w: scan %s: %w", ErrDeviceNotFound, sysRoot, err)
	}
	for _, name := range names {
		data, err := os.ReadFile(name)
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(data)) == framebufferName {
			return filepath.Join(devRoot, filepath.Base(filepath.Dir(name))), nil
		}
	}
	return "", fmt.Errorf("%w: no %q framebuffer under %s", ErrDeviceNotFound, framebufferName, sysRoot)
}

// framebuffer writes frames to the LED matrix device node.
type framebuffer struct {
	f *os.File
}

func openFramebuffer(path string) (*framebuffer, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDeviceNotFound, path, err)
	}
	return &framebuffer{f: f}, nil
}

func (fb *framebuffer) write(frame *Frame) error {
	if _, err := fb.f.WriteAt(encodeFrame(frame), 0); err != nil {
		return fmt.Errorf("%w: %w", ErrDisplayFailed, err)
	}
	return nil
}

func (fb *framebuffer) Close() error {
	return fb.f.Close()
}

// encodeFrame packs a frame as little-endian RGB565.
func encodeFrame(frame *Frame) []byte {
	buf := make([]byte, 2*matrixPixels)
	for i, c := range frame {
		binary.LittleEndian.PutUint16(buf[2*i:], c.RGB565())
	}
	return buf
}
