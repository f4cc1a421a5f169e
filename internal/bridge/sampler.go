package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/nerrad567/echonet-sensehat/internal/devices"
	"github.com/nerrad567/echonet-sensehat/internal/echonet"
	"github.com/nerrad567/echonet-sensehat/internal/infrastructure/mqtt"
)

// DefaultSampleInterval is used when SamplerConfig.Interval is zero.
const DefaultSampleInterval = 60 * time.Second

// Measurement names used in state messages and InfluxDB tags.
const (
	MeasurementPressure    = "pressure"
	MeasurementHumidity    = "humidity"
	MeasurementTemperature = "temperature"
)

// sensor maps a sensor object to its measurement name and EDT decoder.
type sensor struct {
	object      echonet.ObjectCode
	measurement string
	decode      func([]byte) (float64, error)
}

var sensors = []sensor{
	{devices.AirPressureObject, MeasurementPressure, devices.DecodePressure},
	{devices.HumidityObject, MeasurementHumidity, devices.DecodeHumidity},
	{devices.TemperatureObject, MeasurementTemperature, devices.DecodeTemperature},
}

// Reading is one decoded sensor value.
type Reading struct {
	Object      echonet.ObjectCode
	Measurement string
	Value       float64
	Raw         echonet.Property
	Time        time.Time
}

// SamplerConfig configures NewSampler.
type SamplerConfig struct {
	Dispatcher Dispatcher

	// Interval between samples. Default 60s.
	Interval time.Duration

	// Sinks. Any of them may be nil.
	Publisher Publisher
	Metrics   MetricsWriter
	History   ReadingRecorder

	QoS byte
}

// Publisher publishes MQTT messages.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Sampler reads the measured value of each sensor object through the
// dispatcher at a fixed interval.
type Sampler struct {
	dispatcher Dispatcher
	interval   time.Duration
	publisher  Publisher
	metrics    MetricsWriter
	history    ReadingRecorder
	qos        byte
	topics     mqtt.Topics

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// NewSampler creates a sampler. Call Start to begin sampling.
func NewSampler(cfg SamplerConfig) *Sampler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &Sampler{
		dispatcher: cfg.Dispatcher,
		interval:   interval,
		publisher:  cfg.Publisher,
		metrics:    cfg.Metrics,
		history:    cfg.History,
		qos:        cfg.QoS,
		done:       make(chan struct{}),
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger for this sampler.
func (s *Sampler) SetLogger(logger Logger) {
	s.loggerMu.Lock()
	s.logger = logger
	s.loggerMu.Unlock()
}

func (s *Sampler) getLogger() Logger {
	s.loggerMu.RLock()
	defer s.loggerMu.RUnlock()
	return s.logger
}

// Start samples immediately and then on every tick until ctx is cancelled
// or Stop is called.
func (s *Sampler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop ends sampling and waits for an in-flight sample to finish.
func (s *Sampler) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
}

func (s *Sampler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.SampleOnce()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.SampleOnce()
		}
	}
}

// SampleOnce reads every sensor and fans the readings out to the sinks.
// Sensors that fail to read are logged and skipped.
func (s *Sampler) SampleOnce() []Reading {
	now := time.Now()
	readings := make([]Reading, 0, len(sensors))
	for _, sn := range sensors {
		r, err := s.read(sn, now)
		if err != nil {
			s.getLogger().Warn("sensor read failed", "object", sn.object.String(), "error", err)
			continue
		}
		readings = append(readings, r)
		s.emit(r)
	}
	return readings
}

func (s *Sampler) read(sn sensor, at time.Time) (Reading, error) {
	resp, err := s.dispatcher.Request(sn.object, echonet.ESVReadRequest, echonet.Property{Code: devices.EPCMeasuredValue})
	if err != nil {
		return Reading{}, err
	}
	if resp.ESV != echonet.ESVReadResponse || len(resp.Properties) != 1 {
		return Reading{}, fmt.Errorf("%w: %s", ErrReadRejected, resp.ESV)
	}

	prop := resp.Properties[0]
	value, err := sn.decode(prop.Data)
	if err != nil {
		return Reading{}, err
	}
	return Reading{
		Object:      sn.object,
		Measurement: sn.measurement,
		Value:       math.Round(value*100) / 100,
		Raw:         prop,
		Time:        at,
	}, nil
}

func (s *Sampler) emit(r Reading) {
	logger := s.getLogger()

	if s.publisher != nil {
		msg := NewStateMessage(r.Object, map[string]any{r.Measurement: r.Value}, r.Time)
		payload, err := json.Marshal(msg)
		if err == nil {
			err = s.publisher.Publish(s.topics.State(r.Object.String()), payload, s.qos, true)
		}
		if err != nil {
			logger.Warn("failed to publish state", "object", r.Object.String(), "error", err)
		}
	}
	if s.metrics != nil {
		s.metrics.WriteSensorReading(r.Object.String(), r.Measurement, r.Value)
	}
	if s.history != nil {
		s.history.RecordReading(r.Object, r.Raw, r.Time)
	}
}
