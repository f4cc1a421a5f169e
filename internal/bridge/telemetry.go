package bridge

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/echonet-sensehat/internal/devices"
	"github.com/nerrad567/echonet-sensehat/internal/echonet"
)

// TelemetryConfig configures NewTelemetry. At least one sink is required.
type TelemetryConfig struct {
	Dispatcher Dispatcher

	// Interval between sensor samples. Default 60s.
	Interval time.Duration

	// Publisher receives retained sensor state when MQTT is up.
	Publisher Publisher
	// Metrics receives sensor readings and light transitions.
	Metrics   MetricsWriter
	// History receives sensor readings.
	History   ReadingRecorder

	QoS    byte
	Logger Logger
}

// Telemetry feeds the time-series and history sinks. It runs the Sampler
// and forwards light transitions to Metrics, and needs no MQTT connection.
//
// Thread Safety: All methods are safe for concurrent use.
type Telemetry struct {
	dispatcher Dispatcher
	sampler    *Sampler
	metrics    MetricsWriter

	lights chan bool

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	lightsDropped atomic.Uint64

	logger Logger
}

// NewTelemetry creates a Telemetry. Call Start to begin sampling.
//
// Returns:
//   - ErrNoDispatcher when cfg.Dispatcher is nil
//   - ErrNoSinks when Publisher, Metrics and History are all nil
func NewTelemetry(cfg TelemetryConfig) (*Telemetry, error) {
	if cfg.Dispatcher == nil {
		return nil, ErrNoDispatcher
	}
	if cfg.Publisher == nil && cfg.Metrics == nil && cfg.History == nil {
		return nil, ErrNoSinks
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	sampler := NewSampler(SamplerConfig{
		Dispatcher: cfg.Dispatcher,
		Interval:   cfg.Interval,
		Publisher:  cfg.Publisher,
		Metrics:    cfg.Metrics,
		History:    cfg.History,
		QoS:        cfg.QoS,
	})
	sampler.SetLogger(logger)

	return &Telemetry{
		dispatcher: cfg.Dispatcher,
		sampler:    sampler,
		metrics:    cfg.Metrics,
		lights:     make(chan bool, eventQueueSize),
		done:       make(chan struct{}),
		logger:     logger,
	}, nil
}

// Start records the current light state and starts the sampler.
func (t *Telemetry) Start(ctx context.Context) {
	if t.metrics != nil {
		t.wg.Add(1)
		go t.lightLoop()

		if on, err := readLight(t.dispatcher); err != nil {
			t.logger.Warn("failed to read light state", "error", err)
		} else {
			t.metrics.WriteLightState(devices.MonoLightObject.String(), on)
		}
	}

	t.sampler.Start(ctx)
	t.logger.Info("telemetry started", "interval", t.sampler.interval.String())
}

// Stop ends sampling and writes any queued light transitions.
// Safe to call multiple times.
func (t *Telemetry) Stop() {
	t.stopOnce.Do(func() {
		t.sampler.Stop()
		close(t.done)
		t.wg.Wait()
	})
}

// Sampler returns the underlying sampler.
func (t *Telemetry) Sampler() *Sampler {
	return t.sampler
}

// LightsDropped returns how many light transitions overflowed the queue.
func (t *Telemetry) LightsDropped() uint64 {
	return t.lightsDropped.Load()
}

// OnRequest queues accepted light operating status writes for Metrics.
// It never blocks. Its signature matches echonet.Node.SetOnRequest.
func (t *Telemetry) OnRequest(ev echonet.RequestEvent) {
	if t.metrics == nil {
		return
	}
	on, ok := lightTransition(ev)
	if !ok {
		return
	}

	select {
	case t.lights <- on:
	default:
		t.lightsDropped.Add(1)
	}
}

func (t *Telemetry) lightLoop() {
	defer t.wg.Done()
	object := devices.MonoLightObject.String()
	for {
		select {
		case on := <-t.lights:
			t.metrics.WriteLightState(object, on)
		case <-t.done:
			for {
				select {
				case on := <-t.lights:
					t.metrics.WriteLightState(object, on)
				default:
					return
				}
			}
		}
	}
}
