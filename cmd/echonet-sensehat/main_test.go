package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/echonet-sensehat/internal/bridge"
	"github.com/nerrad567/echonet-sensehat/internal/devices"
	"github.com/nerrad567/echonet-sensehat/internal/echonet"
	"github.com/nerrad567/echonet-sensehat/internal/infrastructure/config"
	"github.com/nerrad567/echonet-sensehat/internal/infrastructure/logging"
	"github.com/nerrad567/echonet-sensehat/internal/sensehat"
)

// fakeTransport stands in for the UDP socket.
type fakeTransport struct {
	mu     sync.Mutex
	opened int
	open   bool
}

func (f *fakeTransport) Open(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened++
	f.open = true
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	return nil
}

func (f *fakeTransport) Send(context.Context, echonet.Frame, net.Addr) error { return nil }
func (f *fakeTransport) Multicast(context.Context, echonet.Frame) error      { return nil }
func (f *fakeTransport) SetOnFrame(func(echonet.Frame, net.Addr))            {}

func (f *fakeTransport) Stats() echonet.TransportStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return echonet.TransportStats{Open: f.open}
}

func (f *fakeTransport) state() (opened int, open bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened, f.open
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

const simulatorConfig = `
sensehat:
  driver: simulator
simulator:
  temperature: 20.0
  humidity: 50
  pressure: 1010
database:
  enabled: true
  path: ":memory:"
logging:
  level: error
  format: text
  output: stderr
`

func TestRunInvalidConfig(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx, options{configPath: "/nonexistent/path/config.yaml"}); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

func TestRunRejectsInvalidDriver(t *testing.T) {
	path := writeConfig(t, "sensehat:\n  driver: abacus\n")

	if err := run(context.Background(), options{configPath: path}); err == nil {
		t.Fatal("run() should fail with an unknown driver")
	}
}

func TestRunSimulatorLifecycle(t *testing.T) {
	path := writeConfig(t, simulatorConfig)
	transport := &fakeTransport{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, options{configPath: path, transport: transport})
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, open := transport.state(); open {
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("transport was never opened")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() error = %v, want nil on clean shutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run() did not return after cancellation")
	}

	if opened, open := transport.state(); opened != 1 || open {
		t.Errorf("transport opened=%d open=%v, want 1 and closed", opened, open)
	}
}

// stubMetrics records what would have gone to InfluxDB.
type stubMetrics struct {
	mu      sync.Mutex
	sensors map[string]float64
	lights  []bool
}

func (m *stubMetrics) WriteSensorReading(_, measurement string, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sensors == nil {
		m.sensors = make(map[string]float64)
	}
	m.sensors[measurement] = value
}

func (m *stubMetrics) WriteLightState(_ string, on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lights = append(m.lights, on)
}

func (m *stubMetrics) snapshot() (map[string]float64, []bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sensors := make(map[string]float64, len(m.sensors))
	for k, v := range m.sensors {
		sensors[k] = v
	}
	return sensors, append([]bool(nil), m.lights...)
}

func TestRunMetricsWithoutMQTT(t *testing.T) {
	path := writeConfig(t, simulatorConfig)
	metrics := &stubMetrics{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, options{configPath: path, transport: &fakeTransport{}, metrics: metrics})
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		sensors, lights := metrics.snapshot()
		if len(sensors) == 3 && len(lights) == 1 {
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("metrics never arrived: sensors=%v lights=%v", sensors, lights)
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() error = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run() did not return after cancellation")
	}

	sensors, lights := metrics.snapshot()
	if sensors["temperature"] != 20 || sensors["humidity"] != 50 {
		t.Errorf("sensor metrics = %v, want temperature 20 and humidity 50", sensors)
	}
	if lights[0] {
		t.Error("initial light state should be off")
	}
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    options
		wantErr bool
	}{
		{"none", nil, options{}, false},
		{"verbose", []string{"-v"}, options{verbose: true}, false},
		{"config", []string{"-config", "/etc/sensehat.yaml"}, options{configPath: "/etc/sensehat.yaml"}, false},
		{"both", []string{"-v", "-config=x.yaml"}, options{verbose: true, configPath: "x.yaml"}, false},
		{"unknown", []string{"-bogus"}, options{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFlags(tt.args, &bytes.Buffer{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseFlags() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseFlags() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseFlagsHelp(t *testing.T) {
	var out bytes.Buffer
	_, err := parseFlags([]string{"-h"}, &out)
	if !errors.Is(err, flag.ErrHelp) {
		t.Errorf("parseFlags(-h) error = %v, want flag.ErrHelp", err)
	}
	if !bytes.Contains(out.Bytes(), []byte("-config")) {
		t.Errorf("usage does not mention -config:\n%s", out.String())
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Run("flag wins", func(t *testing.T) {
		t.Setenv(configEnv, "/from/env.yaml")
		if got := getConfigPath("/from/flag.yaml"); got != "/from/flag.yaml" {
			t.Errorf("getConfigPath() = %q, want flag value", got)
		}
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv(configEnv, "/from/env.yaml")
		if got := getConfigPath(""); got != "/from/env.yaml" {
			t.Errorf("getConfigPath() = %q, want env value", got)
		}
	})

	t.Run("missing default", func(t *testing.T) {
		t.Setenv(configEnv, "")
		t.Chdir(t.TempDir())
		if got := getConfigPath(""); got != "" {
			t.Errorf("getConfigPath() = %q, want empty when %s is missing", got, defaultConfigPath)
		}
	})

	t.Run("existing default", func(t *testing.T) {
		t.Setenv(configEnv, "")
		dir := t.TempDir()
		if err := os.MkdirAll(filepath.Join(dir, "configs"), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, defaultConfigPath), nil, 0o600); err != nil {
			t.Fatal(err)
		}
		t.Chdir(dir)
		if got := getConfigPath(""); got != defaultConfigPath {
			t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
		}
	})
}

func TestNodeOptions(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	cfg.Node.ManufacturerCode = "00000B"
	cfg.Node.NodeID = "lab-pi"
	cfg.Light.Foreground = "FF0000"

	sim := sensehat.NewSimulator(20, 50, 1000)
	opts, err := nodeOptions(cfg, sim, logging.Default())
	if err != nil {
		t.Fatalf("nodeOptions() error = %v", err)
	}

	if opts.Node.ManufacturerCode != 0x00000B || opts.Node.NodeID != "lab-pi" {
		t.Errorf("Node = %+v", opts.Node)
	}
	if opts.UDP.ListenAddress != ":3610" || opts.UDP.MulticastGroup != "224.0.23.0" {
		t.Errorf("UDP = %+v", opts.UDP)
	}
	if opts.Light.Foreground != (sensehat.Colour{R: 0xFF}) || opts.Light.Text != "ON" {
		t.Errorf("Light = %+v", opts.Light)
	}
	if opts.Backend != sim {
		t.Error("Backend not passed through")
	}
}

func TestFanOut(t *testing.T) {
	var got []string
	observe := fanOut(
		func(echonet.RequestEvent) { got = append(got, "history") },
		func(echonet.RequestEvent) { got = append(got, "bridge") },
	)

	observe(echonet.RequestEvent{Object: devices.MonoLightObject})

	if len(got) != 2 || got[0] != "history" || got[1] != "bridge" {
		t.Errorf("observers called = %v, want [history bridge]", got)
	}
}

func TestNodeID(t *testing.T) {
	cfg := &config.Config{}
	cfg.MQTT.Broker.ClientID = "client"
	if got := nodeID(cfg); got != "client" {
		t.Errorf("nodeID() = %q, want client ID fallback", got)
	}
	cfg.Node.NodeID = "node"
	if got := nodeID(cfg); got != "node" {
		t.Errorf("nodeID() = %q, want node", got)
	}
}

func TestNewBridgeError(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	dispatcher := echonet.NewNode(echonet.NodeConfig{}, &fakeTransport{})

	if _, err := newBridge(cfg, nil, 1, dispatcher, logging.Default()); !errors.Is(err, bridge.ErrNoMQTT) {
		t.Errorf("newBridge() error = %v, want ErrNoMQTT", err)
	}
}

func TestNewTelemetrySinks(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	dispatcher := echonet.NewNode(echonet.NodeConfig{}, &fakeTransport{})

	if _, err := newTelemetry(cfg, dispatcher, nil, 0, nil, nil, logging.Default()); !errors.Is(err, bridge.ErrNoSinks) {
		t.Errorf("newTelemetry() without sinks error = %v, want ErrNoSinks", err)
	}
	tel, err := newTelemetry(cfg, dispatcher, nil, 0, &stubMetrics{}, nil, logging.Default())
	if err != nil || tel == nil {
		t.Fatalf("newTelemetry() with metrics = %v, %v", tel, err)
	}
}
