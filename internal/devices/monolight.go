package devices

import (
	"sync"

	"github.com/nerrad567/echonet-sensehat/internal/echonet"
	"github.com/nerrad567/echonet-sensehat/internal/sensehat"
)

// DefaultLightText is shown on the matrix when the light turns on.
const DefaultLightText = "ON"

// LightConfig sets what the matrix shows when the light is on.
type LightConfig struct {
	Text       string
	Foreground sensehat.Colour
	Background sensehat.Colour
}

// MonoLight is the mono functional lighting object (class 0x0291) drawn on
// the LED matrix. The matrix is cleared on construction and on Close.
//
// Thread Safety: All methods are safe for concurrent use.
type MonoLight struct {
	backend sensehat.Backend
	cfg     LightConfig
	logger  Logger

	mu     sync.Mutex
	status byte
}

// NewMonoLight binds the light to the backend and clears the matrix.
// A failed clear is logged; the light still starts in the OFF state.
func NewMonoLight(backend sensehat.Backend, cfg LightConfig, logger Logger) *MonoLight {
	if cfg.Text == "" {
		cfg.Text = DefaultLightText
	}
	if cfg.Foreground == (sensehat.Colour{}) {
		cfg.Foreground = sensehat.White
	}
	if logger == nil {
		logger = noopLogger{}
	}

	l := &MonoLight{
		backend: backend,
		cfg:     cfg,
		logger:  logger,
		status:  StatusOff,
	}
	if err := backend.DisplayClear(); err != nil {
		logger.Warn("initial display clear failed", "error", err)
	}
	return l
}

// Code returns the light's object code.
func (l *MonoLight) Code() echonet.ObjectCode {
	return MonoLightObject
}

// Status returns the last operating status written, StatusOn or StatusOff.
func (l *MonoLight) Status() byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// HandleProperty implements echonet.RequestHandler.
//
// Writes of 0x30 to the operating status show the configured text, 0x31
// clears the matrix. Reads report the remembered status.
func (l *MonoLight) HandleProperty(deoj echonet.ObjectCode, esv echonet.ESV, prop echonet.Property) (echonet.Property, bool) {
	if deoj != MonoLightObject || prop.Code != EPCOperatingStatus {
		return prop, false
	}

	switch {
	case esv.IsWrite():
		return l.setStatus(prop)
	case esv.IsRead():
		return echonet.Property{Code: prop.Code, Data: []byte{l.Status()}}, true
	}
	return prop, false
}

func (l *MonoLight) setStatus(prop echonet.Property) (echonet.Property, bool) {
	value, err := decodeUint(prop.Data)
	if err != nil {
		return prop, false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	switch value {
	case uint32(StatusOn):
		err = l.backend.DisplayText(l.cfg.Text, l.cfg.Foreground, l.cfg.Background)
	case uint32(StatusOff):
		err = l.backend.DisplayClear()
	default:
		return prop, false
	}
	if err != nil {
		l.logger.Warn("light write failed", "value", value, "error", err)
		return prop, false
	}

	l.status = byte(value)
	l.logger.Debug("light operating status", "on", l.status == StatusOn)
	return echonet.Property{Code: prop.Code}, true
}

// Close clears the matrix regardless of the current status.
func (l *MonoLight) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status = StatusOff
	return l.backend.DisplayClear()
}
