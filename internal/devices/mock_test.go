package devices

import (
	"sync"

	"github.com/nerrad567/echonet-sensehat/internal/sensehat"
)

// mockBackend counts backend calls and injects failures.
type mockBackend struct {
	mu sync.Mutex

	temperature float64
	humidity    float64
	pressure    float64
	readErr     error
	displayErr  error

	reads  int
	texts  []string
	clears int
	closed bool
}

func newMockBackend() *mockBackend {
	return &mockBackend{temperature: 21.5, humidity: 45.0, pressure: 1013.25}
}

func (m *mockBackend) read(v float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.readErr != nil {
		return 0, m.readErr
	}
	return v, nil
}

func (m *mockBackend) ReadTemperature() (float64, error) { return m.read(m.temperature) }
func (m *mockBackend) ReadHumidity() (float64, error) { return m.read(m.humidity) }
func (m *mockBackend) ReadPressure() (float64, error) { return m.read(m.pressure) }

func (m *mockBackend) DisplayText(text string, _, _ sensehat.Colour) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.displayErr != nil {
		return m.displayErr
	}
	m.texts = append(m.texts, text)
	return nil
}

func (m *mockBackend) DisplayClear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.displayErr != nil {
		return m.displayErr
	}
	m.clears++
	return nil
}

func (m *mockBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockBackend) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

func (m *mockBackend) Clears() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clears
}

func (m *mockBackend) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}
