package sensehat

import "sync"

// Simulator defaults, roughly an indoor room at sea level.
const (
	DefaultSimTemperature = 21.5
	DefaultSimHumidity    = 45.0
	DefaultSimPressure    = 1013.25
)

// DisplayCall records one DisplayText call on a Simulator.
type DisplayCall struct {
	Text string
	FG   Colour
	BG   Colour
}

// Simulator is a Backend with settable readings and a recorded display.
//
// Thread Safety: All methods are safe for concurrent use.
type Simulator struct {
	mu sync.Mutex

	temperature float64
	humidity    float64
	pressure    float64

	readErr    error
	displayErr error

	texts  []DisplayCall
	clears int
	lit    bool
	closed bool
}

// NewSimulator returns a Simulator with the given readings.
func NewSimulator(temperature, humidity, pressure float64) *Simulator {
	return &Simulator{
		temperature: temperature,
		humidity:    humidity,
		pressure:    pressure,
	}
}

// SetReadings replaces the sensor values.
func (s *Simulator) SetReadings(temperature, humidity, pressure float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.temperature, s.humidity, s.pressure = temperature, humidity, pressure
}

// FailReads makes every sensor read return err. Nil restores normal reads.
func (s *Simulator) FailReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readErr = err
}

// FailDisplay makes every display call return err. Nil restores the display.
func (s *Simulator) FailDisplay(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.displayErr = err
}

func (s *Simulator) read(v float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	if s.readErr != nil {
		return 0, s.readErr
	}
	return v, nil
}

// ReadTemperature implements Backend.
func (s *Simulator) ReadTemperature() (float64, error) { return s.read(s.current().temperature) }

// ReadHumidity implements Backend.
func (s *Simulator) ReadHumidity() (float64, error) { return s.read(s.current().humidity) }

// ReadPressure implements Backend.
func (s *Simulator) ReadPressure() (float64, error) { return s.read(s.current().pressure) }

type readings struct{ temperature, humidity, pressure float64 }

func (s *Simulator) current() readings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return readings{s.temperature, s.humidity, s.pressure}
}

// DisplayText implements Backend.
func (s *Simulator) DisplayText(text string, fg, bg Colour) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.displayErr != nil {
		return s.displayErr
	}
	s.texts = append(s.texts, DisplayCall{Text: text, FG: fg, BG: bg})
	s.lit = true
	return nil
}

// DisplayClear implements Backend.
func (s *Simulator) DisplayClear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.displayErr != nil {
		return s.displayErr
	}
	s.clears++
	s.lit = false
	return nil
}

// Close implements Backend.
func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Texts returns every successful DisplayText call.
func (s *Simulator) Texts() []DisplayCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DisplayCall, len(s.texts))
	copy(out, s.texts)
	return out
}

// Clears returns the number of successful DisplayClear calls.
func (s *Simulator) Clears() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clears
}

// Lit reports whether the matrix currently shows text.
func (s *Simulator) Lit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lit
}
