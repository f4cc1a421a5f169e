package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/echonet-sensehat/internal/devices"
	"github.com/nerrad567/echonet-sensehat/internal/echonet"
)

func TestSampleOnce(t *testing.T) {
	n, _ := newTestNode(t)
	client := newMockMQTT()
	metrics := &recordingMetrics{}
	history := &recordingHistory{}

	s := NewSampler(SamplerConfig{
		Dispatcher: n.Dispatcher(),
		Publisher:  client,
		Metrics:    metrics,
		History:    history,
		QoS:        1,
	})

	readings := s.SampleOnce()

	want := map[echonet.ObjectCode]struct {
		measurement string
		value       float64
	}{
		devices.AirPressureObject: {MeasurementPressure, 1000},
		devices.HumidityObject:    {MeasurementHumidity, 45},
		devices.TemperatureObject: {MeasurementTemperature, 21.5},
	}
	if len(readings) != len(want) {
		t.Fatalf("SampleOnce() returned %d readings, want %d", len(readings), len(want))
	}
	for _, r := range readings {
		w := want[r.Object]
		if r.Measurement != w.measurement || r.Value != w.value {
			t.Errorf("%s reading = %s %v, want %s %v", r.Object, r.Measurement, r.Value, w.measurement, w.value)
		}

		msgs := client.on(topics.State(r.Object.String()))
		if len(msgs) != 1 || !msgs[0].retained || msgs[0].qos != 1 {
			t.Fatalf("%s state messages = %+v", r.Object, msgs)
		}
		state := decode[StateMessage](t, msgs[0].payload)
		if state.Object != r.Object.String() || state.State[w.measurement] != w.value {
			t.Errorf("state = %+v", state)
		}

		if prop, ok := history.props[r.Object]; !ok || prop.Code != devices.EPCMeasuredValue {
			t.Errorf("history for %s = %v, %v", r.Object, prop, ok)
		}
	}
	if len(metrics.sensors) != 3 {
		t.Errorf("metrics writes = %d, want 3", len(metrics.sensors))
	}
}

func TestSampleOnceSkipsFailedSensors(t *testing.T) {
	n, sim := newTestNode(t)
	sim.FailReads(errors.New("i2c timeout"))
	client := newMockMQTT()

	s := NewSampler(SamplerConfig{Dispatcher: n.Dispatcher(), Publisher: client})
	if readings := s.SampleOnce(); len(readings) != 0 {
		t.Errorf("SampleOnce() = %v, want no readings", readings)
	}
	if len(client.messages) != 0 {
		t.Errorf("published %d messages for failed reads", len(client.messages))
	}
}

func TestSampleOnceRejectedRead(t *testing.T) {
	s := NewSampler(SamplerConfig{
		Dispatcher: &stubDispatcher{resp: echonet.Frame{ESV: echonet.ESVReadSNA}},
	})

	_, err := s.read(sensors[0], time.Now())
	if !errors.Is(err, ErrReadRejected) {
		t.Errorf("read() error = %v, want ErrReadRejected", err)
	}
}

func TestSampleOncePublishFailure(t *testing.T) {
	n, _ := newTestNode(t)
	client := newMockMQTT()
	client.publishErr = errBroker
	metrics := &recordingMetrics{}

	s := NewSampler(SamplerConfig{Dispatcher: n.Dispatcher(), Publisher: client, Metrics: metrics})
	if readings := s.SampleOnce(); len(readings) != 3 {
		t.Errorf("SampleOnce() = %d readings, want 3", len(readings))
	}
	if len(metrics.sensors) != 3 {
		t.Errorf("metrics writes = %d, want 3 despite MQTT failure", len(metrics.sensors))
	}
}

func TestSamplerLoop(t *testing.T) {
	n, _ := newTestNode(t)
	client := newMockMQTT()

	s := NewSampler(SamplerConfig{
		Dispatcher: n.Dispatcher(),
		Publisher:  client,
		Interval:   10 * time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx)
	client.waitFor(t, topics.State(devices.HumidityObject.String()), 3)
	s.Stop()
	s.Stop()

	after := len(client.on(topics.State(devices.HumidityObject.String())))
	time.Sleep(30 * time.Millisecond)
	if got := len(client.on(topics.State(devices.HumidityObject.String()))); got != after {
		t.Errorf("sampler kept publishing after Stop: %d -> %d", after, got)
	}
}

func TestNewSamplerDefaults(t *testing.T) {
	s := NewSampler(SamplerConfig{})
	if s.interval != DefaultSampleInterval {
		t.Errorf("interval = %v, want %v", s.interval, DefaultSampleInterval)
	}
}
