// Package node assembles the Sense HAT ECHONET Lite node: one backend shared
// by the four device objects, registered on one echonet.Node.
package node

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/echonet-sensehat/internal/devices"
	"github.com/nerrad567/echonet-sensehat/internal/echonet"
	"github.com/nerrad567/echonet-sensehat/internal/sensehat"
)

// ErrNoBackend is returned by New when Options.Backend is nil.
var ErrNoBackend = errors.New("node: backend is required")

// Logger is the logging surface used by the node and its device objects.
type Logger interface {
	echonet.Logger
}

// Options configures New.
type Options struct {
	// Backend is the board. The node owns it from here on and closes it in Close.
	Backend sensehat.Backend

	// Transport carries frames. Nil creates a UDPTransport from UDP.
	Transport echonet.Transport

	UDP   echonet.UDPConfig
	Node  echonet.NodeConfig
	Light devices.LightConfig

	Logger Logger
}

// Node is the composite Sense HAT node.
//
// Lifecycle: New -> Start -> Stop -> Close. Stop and Start may alternate;
// Close is final.
type Node struct {
	backend *sensehat.Shared
	echo    *echonet.Node

	airPressure *devices.AirPressure
	humidity    *devices.Humidity
	temperature *devices.Temperature
	light       *devices.MonoLight
}

// New wraps the backend, creates the four device objects and registers them.
// Creating the light clears the LED matrix.
func New(opts Options) (*Node, error) {
	if opts.Backend == nil {
		return nil, ErrNoBackend
	}

	transport := opts.Transport
	if transport == nil {
		transport = echonet.NewUDPTransport(opts.UDP)
	}

	shared := sensehat.NewShared(opts.Backend)
	n := &Node{
		backend: shared,
		echo:    echonet.NewNode(opts.Node, transport),
	}

	var devLogger devices.Logger
	if opts.Logger != nil {
		n.echo.SetLogger(opts.Logger)
		devLogger = opts.Logger
	}

	n.airPressure = devices.NewAirPressure(shared, devLogger)
	n.humidity = devices.NewHumidity(shared, devLogger)
	n.temperature = devices.NewTemperature(shared, devLogger)
	n.light = devices.NewMonoLight(shared, opts.Light, devLogger)

	for code, handler := range map[echonet.ObjectCode]echonet.RequestHandler{
		devices.AirPressureObject: n.airPressure,
		devices.HumidityObject:    n.humidity,
		devices.TemperatureObject: n.temperature,
		devices.MonoLightObject:   n.light,
	} {
		if err := n.echo.RegisterDevice(code, handler); err != nil {
			return nil, fmt.Errorf("register %s: %w", code, err)
		}
	}

	return n, nil
}

// Start opens the transport and begins serving requests.
func (n *Node) Start(ctx context.Context) error {
	return n.echo.Start(ctx)
}

// Stop stops serving requests.
func (n *Node) Stop() error {
	return n.echo.Stop()
}

// Close clears the LED matrix and closes the backend. A running node is
// stopped first.
func (n *Node) Close() error {
	var errs []error
	if n.echo.IsRunning() {
		errs = append(errs, n.echo.Stop())
	}
	if err := n.light.Close(); err != nil {
		errs = append(errs, fmt.Errorf("clear display: %w", err))
	}
	if err := n.backend.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close backend: %w", err))
	}
	return errors.Join(errs...)
}

// Dispatcher returns the ECHONET node for local requests and observers.
func (n *Node) Dispatcher() *echonet.Node {
	return n.echo
}

// Light returns the mono light device object.
func (n *Node) Light() *devices.MonoLight {
	return n.light
}

// Stats returns the ECHONET node statistics.
func (n *Node) Stats() echonet.NodeStats {
	return n.echo.Stats()
}
