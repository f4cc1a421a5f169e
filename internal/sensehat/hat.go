package sensehat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Hardware defaults.
const (
	DefaultI2CBus      = 1
	DefaultScrollDelay = 100 * time.Millisecond

	sysGraphicsRoot = "/sys/class/graphics"
	devRoot         = "/dev"
)

// Config selects the board's device nodes.
type Config struct {
	// I2CBus is the N in /dev/i2c-N.
	I2CBus int

	// Framebuffer is the LED matrix device node. Empty means auto-detect.
	Framebuffer string

	// ScrollDelay is the time each text frame stays on the matrix.
	ScrollDelay time.Duration

	Logger Logger
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// frameWriter is the LED matrix output.
type frameWriter interface {
	write(frame *Frame) error
	Close() error
}

// HAT is the hardware Backend.
//
// Thread Safety: Not safe for concurrent use. Wrap in Shared.
// Text scrolling runs on its own goroutine and is cancelled by the next
// display call.
type HAT struct {
	pressure *lps25h
	humidity *hts221
	screen   frameWriter

	scrollDelay  time.Duration
	scrollCancel context.CancelFunc
	scrollMu     sync.Mutex // guards screen writes between scroller and caller
	scrollWG     sync.WaitGroup

	logger Logger
	closed bool
}

// Open probes both sensors and the LED matrix.
//
// Returns ErrDeviceNotFound if any of them is missing and ErrWrongDevice if
// a sensor identifies as something else.
func Open(cfg Config) (*HAT, error) {
	if cfg.I2CBus == 0 {
		cfg.I2CBus = DefaultI2CBus
	}

	fbPath := cfg.Framebuffer
	if fbPath == "" {
		var err error
		if fbPath, err = findFramebuffer(sysGraphicsRoot, devRoot); err != nil {
			return nil, err
		}
	}

	pressure, err := openLPS25H(cfg.I2CBus)
	if err != nil {
		return nil, err
	}
	humidity, err := openHTS221(cfg.I2CBus)
	if err != nil {
		pressure.Close()
		return nil, err
	}
	fb, err := openFramebuffer(fbPath)
	if err != nil {
		pressure.Close()
		humidity.Close()
		return nil, err
	}

	return newHAT(pressure, humidity, fb, cfg), nil
}

func newHAT(pressure *lps25h, humidity *hts221, screen frameWriter, cfg Config) *HAT {
	if cfg.ScrollDelay <= 0 {
		cfg.ScrollDelay = DefaultScrollDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}
	return &HAT{
		pressure:    pressure,
		humidity:    humidity,
		screen:      screen,
		scrollDelay: cfg.ScrollDelay,
		logger:      cfg.Logger,
	}
}

// ReadTemperature reads the LPS25H temperature sensor.
func (h *HAT) ReadTemperature() (float64, error) {
	if h.closed {
		return 0, ErrClosed
	}
	return h.pressure.temperature()
}

// ReadHumidity reads the HTS221.
func (h *HAT) ReadHumidity() (float64, error) {
	if h.closed {
		return 0, ErrClosed
	}
	return h.humidity.humidity()
}

// ReadPressure reads the LPS25H.
func (h *HAT) ReadPressure() (float64, error) {
	if h.closed {
		return 0, ErrClosed
	}
	return h.pressure.pressure()
}

// DisplayText shows the first frame of text synchronously and scrolls the
// rest in the background. The last frame stays on the matrix.
func (h *HAT) DisplayText(text string, fg, bg Colour) error {
	if h.closed {
		return ErrClosed
	}
	h.stopScroll()

	frames := scrollFrames(text, fg, bg)
	if err := h.writeFrame(&frames[0]); err != nil {
		return err
	}
	if len(frames) == 1 {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.scrollCancel = cancel
	h.scrollWG.Add(1)
	go h.scroll(ctx, frames[1:])
	return nil
}

func (h *HAT) scroll(ctx context.Context, frames []Frame) {
	defer h.scrollWG.Done()

	ticker := time.NewTicker(h.scrollDelay)
	defer ticker.Stop()

	for i := range frames {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := h.writeFrame(&frames[i]); err != nil {
			h.logger.Warn("scroll aborted", "error", err)
			return
		}
	}
}

// DisplayClear stops any scroll and turns every LED off.
func (h *HAT) DisplayClear() error {
	if h.closed {
		return ErrClosed
	}
	h.stopScroll()
	blank := solidFrame(Black)
	return h.writeFrame(&blank)
}

func (h *HAT) writeFrame(frame *Frame) error {
	h.scrollMu.Lock()
	defer h.scrollMu.Unlock()
	return h.screen.write(frame)
}

func (h *HAT) stopScroll() {
	if h.scrollCancel != nil {
		h.scrollCancel()
		h.scrollCancel = nil
	}
	h.scrollWG.Wait()
}

// Close stops scrolling and releases every device node. The matrix keeps
// whatever it showed last.
func (h *HAT) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	h.stopScroll()

	var errs []error
	if h.pressure != nil {
		errs = append(errs, h.pressure.Close())
	}
	if h.humidity != nil {
		errs = append(errs, h.humidity.Close())
	}
	errs = append(errs, h.screen.Close())
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close sensehat: %w", err)
	}
	return nil
}
