package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/echonet-sensehat/internal/echonet"
	"github.com/nerrad567/echonet-sensehat/internal/node"
	"github.com/nerrad567/echonet-sensehat/internal/sensehat"
)

type published struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// mockMQTT records publishes and keeps the last subscription handler.
type mockMQTT struct {
	mu           sync.Mutex
	connected    bool
	publishErr   error
	subscribeErr error
	messages     []published
	handlers     map[string]func(topic string, payload []byte)
}

func newMockMQTT() *mockMQTT {
	return &mockMQTT{
		connected: true,
		handlers:  make(map[string]func(string, []byte)),
	}
}

func (m *mockMQTT) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.messages = append(m.messages, published{topic, payload, qos, retained})
	return nil
}

func (m *mockMQTT) Subscribe(topic string, _ byte, handler func(topic string, payload []byte)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subscribeErr != nil {
		return m.subscribeErr
	}
	m.handlers[topic] = handler
	return nil
}

func (m *mockMQTT) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockMQTT) setConnected(v bool) {
	m.mu.Lock()
	m.connected = v
	m.mu.Unlock()
}

// deliver simulates a broker message on a subscribed filter.
func (m *mockMQTT) deliver(t *testing.T, filter, topic string, payload []byte) {
	t.Helper()
	m.mu.Lock()
	handler := m.handlers[filter]
	m.mu.Unlock()
	if handler == nil {
		t.Fatalf("no subscription for %q", filter)
	}
	handler(topic, payload)
}

func (m *mockMQTT) on(topic string) []published {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []published
	for _, msg := range m.messages {
		if msg.topic == topic {
			out = append(out, msg)
		}
	}
	return out
}

// waitFor polls until at least n messages arrived on topic.
func (m *mockMQTT) waitFor(t *testing.T, topic string, n int) []published {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if msgs := m.on(topic); len(msgs) >= n {
			return msgs
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d messages on %s, got %d", n, topic, len(m.on(topic)))
	return nil
}

func decode[T any](t *testing.T, payload []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		t.Fatalf("unmarshal %s: %v", payload, err)
	}
	return v
}

type sensorWrite struct {
	object, measurement string
	value               float64
}

type recordingMetrics struct {
	mu      sync.Mutex
	sensors []sensorWrite
	lights  []bool
}

func (r *recordingMetrics) WriteSensorReading(object, measurement string, value float64) {
	r.mu.Lock()
	r.sensors = append(r.sensors, sensorWrite{object, measurement, value})
	r.mu.Unlock()
}

func (r *recordingMetrics) WriteLightState(_ string, on bool) {
	r.mu.Lock()
	r.lights = append(r.lights, on)
	r.mu.Unlock()
}

func (r *recordingMetrics) lightWrites() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.lights...)
}

func (r *recordingMetrics) sensorWrites() []sensorWrite {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sensorWrite(nil), r.sensors...)
}

type recordingHistory struct {
	mu    sync.Mutex
	props map[echonet.ObjectCode]echonet.Property
}

func (r *recordingHistory) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.props)
}

func (r *recordingHistory) RecordReading(object echonet.ObjectCode, prop echonet.Property, _ time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.props == nil {
		r.props = make(map[echonet.ObjectCode]echonet.Property)
	}
	r.props[object] = prop
}

// fakeTransport lets a node run without a socket.
type fakeTransport struct {
	mu   sync.Mutex
	open bool
}

func (f *fakeTransport) Open(context.Context) error {
	f.mu.Lock()
	f.open = true
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.open = false
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Send(context.Context, echonet.Frame, net.Addr) error { return nil }
func (f *fakeTransport) Multicast(context.Context, echonet.Frame) error      { return nil }
func (f *fakeTransport) SetOnFrame(func(echonet.Frame, net.Addr))            {}

func (f *fakeTransport) Stats() echonet.TransportStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return echonet.TransportStats{Open: f.open, PacketsRx: 3, PacketsTx: 2}
}

// newTestNode builds a real Sense HAT node on the simulator.
func newTestNode(t *testing.T) (*node.Node, *sensehat.Simulator) {
	t.Helper()
	sim := sensehat.NewSimulator(21.5, 45, 1000)
	n, err := node.New(node.Options{Backend: sim, Transport: &fakeTransport{}})
	if err != nil {
		t.Fatalf("node.New() error = %v", err)
	}
	t.Cleanup(func() { n.Close() }) //nolint:errcheck // test cleanup
	return n, sim
}

// stubDispatcher answers every request with a fixed frame or error.
type stubDispatcher struct {
	resp  echonet.Frame
	err   error
	stats echonet.NodeStats
}

func (s *stubDispatcher) Request(echonet.ObjectCode, echonet.ESV, ...echonet.Property) (echonet.Frame, error) {
	return s.resp, s.err
}

func (s *stubDispatcher) Devices() []echonet.ObjectCode { return nil }
func (s *stubDispatcher) Stats() echonet.NodeStats      { return s.stats }

var errBroker = errors.New("broker unavailable")

// eventually polls cond until it holds or two seconds pass.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
