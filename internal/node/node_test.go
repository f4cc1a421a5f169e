package node

import (
	"context"
	"errors"
	"net"
	"reflect"
	"sync"
	"testing"

	"github.com/nerrad567/echonet-sensehat/internal/devices"
	"github.com/nerrad567/echonet-sensehat/internal/echonet"
	"github.com/nerrad567/echonet-sensehat/internal/sensehat"
)

type fakeTransport struct {
	mu      sync.Mutex
	open    bool
	openErr error
	sent    []echonet.Frame
}

func (f *fakeTransport) Open(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.open = true
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	return nil
}

func (f *fakeTransport) Send(_ context.Context, fr echonet.Frame, _ net.Addr) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, fr)
	return nil
}

func (f *fakeTransport) Multicast(_ context.Context, fr echonet.Frame) error {
	return f.Send(context.Background(), fr, nil)
}

func (f *fakeTransport) SetOnFrame(func(echonet.Frame, net.Addr)) {}

func (f *fakeTransport) Stats() echonet.TransportStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return echonet.TransportStats{Open: f.open}
}

func (f *fakeTransport) isOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func newTestNode(t *testing.T) (*Node, *sensehat.Simulator, *fakeTransport) {
	t.Helper()
	sim := sensehat.NewSimulator(21.5, 45, 1000)
	transport := &fakeTransport{}
	n, err := New(Options{Backend: sim, Transport: transport})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return n, sim, transport
}

func TestNewRequiresBackend(t *testing.T) {
	if _, err := New(Options{}); !errors.Is(err, ErrNoBackend) {
		t.Errorf("New() error = %v, want ErrNoBackend", err)
	}
}

func TestNewRegistersDevices(t *testing.T) {
	n, sim, _ := newTestNode(t)

	want := []echonet.ObjectCode{
		devices.TemperatureObject,
		devices.HumidityObject,
		devices.AirPressureObject,
		devices.MonoLightObject,
	}
	if got := n.Dispatcher().Devices(); !reflect.DeepEqual(got, want) {
		t.Errorf("Devices() = %v, want %v", got, want)
	}
	if sim.Clears() != 1 {
		t.Errorf("clears after New = %d, want 1", sim.Clears())
	}
}

func TestNodeLifecycle(t *testing.T) {
	n, sim, transport := newTestNode(t)

	if err := n.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !transport.isOpen() {
		t.Error("transport not opened")
	}
	if !n.Stats().Running {
		t.Error("Stats().Running = false after Start")
	}
	if err := n.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if transport.isOpen() {
		t.Error("transport still open after Stop")
	}
	if err := n.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if sim.Clears() != 2 {
		t.Errorf("clears after Close = %d, want 2", sim.Clears())
	}
}

func TestNodeStartFailureSurfaces(t *testing.T) {
	sim := sensehat.NewSimulator(21.5, 45, 1000)
	n, err := New(Options{Backend: sim, Transport: &fakeTransport{openErr: errors.New("bind: address in use")}})
	if err != nil {
		t.Fatal(err)
	}
	if err := n.Start(context.Background()); !errors.Is(err, echonet.ErrTransportFailed) {
		t.Errorf("Start() error = %v, want ErrTransportFailed", err)
	}
}

func TestNodeCloseStopsRunningNode(t *testing.T) {
	n, _, transport := newTestNode(t)
	if err := n.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := n.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if transport.isOpen() {
		t.Error("Close() left the transport open")
	}
}

func TestNodeServesSensorReads(t *testing.T) {
	n, _, _ := newTestNode(t)

	resp, err := n.Dispatcher().Request(devices.HumidityObject, echonet.ESVReadRequest,
		echonet.Property{Code: devices.EPCMeasuredValue})
	if err != nil {
		t.Fatal(err)
	}
	if resp.ESV != echonet.ESVReadResponse || !reflect.DeepEqual(resp.Properties[0].Data, []byte{0x2D}) {
		t.Errorf("humidity response = %+v", resp)
	}

	resp, err = n.Dispatcher().Request(devices.MonoLightObject, echonet.ESVWriteRequest,
		echonet.Property{Code: devices.EPCOperatingStatus, Data: []byte{devices.StatusOn}})
	if err != nil {
		t.Fatal(err)
	}
	if resp.ESV != echonet.ESVWriteResponse || n.Light().Status() != devices.StatusOn {
		t.Errorf("light response = %+v, status 0x%02X", resp, n.Light().Status())
	}
}
