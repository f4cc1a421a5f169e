package sensehat

import "sync"

// Shared serialises access to one Backend. The lock is held only for the
// duration of each call.
//
// Thread Safety: All methods are safe for concurrent use.
type Shared struct {
	mu      sync.Mutex
	backend Backend
}

// NewShared wraps backend.
func NewShared(backend Backend) *Shared {
	return &Shared{backend: backend}
}

// ReadTemperature implements Backend.
func (s *Shared) ReadTemperature() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.ReadTemperature()
}

// ReadHumidity implements Backend.
func (s *Shared) ReadHumidity() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.ReadHumidity()
}

// ReadPressure implements Backend.
func (s *Shared) ReadPressure() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.ReadPressure()
}

// DisplayText implements Backend.
func (s *Shared) DisplayText(text string, fg, bg Colour) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.DisplayText(text, fg, bg)
}

// DisplayClear implements Backend.
func (s *Shared) DisplayClear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.DisplayClear()
}

// Close implements Backend.
func (s *Shared) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Close()
}
