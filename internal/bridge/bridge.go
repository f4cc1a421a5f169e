package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/echonet-sensehat/internal/devices"
	"github.com/nerrad567/echonet-sensehat/internal/echonet"
	"github.com/nerrad567/echonet-sensehat/internal/infrastructure/mqtt"
)

// eventQueueSize bounds light state updates waiting to be published.
const eventQueueSize = 32

// Logger is the logging surface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MQTTClient is the MQTT surface the bridge needs.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error
	IsConnected() bool
}

// Dispatcher runs local ECHONET requests. Satisfied by *echonet.Node.
type Dispatcher interface {
	Request(deoj echonet.ObjectCode, esv echonet.ESV, props ...echonet.Property) (echonet.Frame, error)
	Devices() []echonet.ObjectCode
	Stats() echonet.NodeStats
}

// MetricsWriter stores readings as time series. Satisfied by *influxdb.Client.
type MetricsWriter interface {
	WriteSensorReading(object, measurement string, value float64)
	WriteLightState(object string, on bool)
}

// ReadingRecorder stores sampled readings. Satisfied by *history.Recorder.
type ReadingRecorder interface {
	RecordReading(object echonet.ObjectCode, prop echonet.Property, at time.Time)
}

// Options configures NewBridge.
type Options struct {
	MQTT       MQTTClient
	Dispatcher Dispatcher

	NodeID  string
	Version string
	QoS     byte

	HealthInterval time.Duration

	Logger Logger
}

// Bridge connects the node's device objects to MQTT. Sensor readings are
// published by a Telemetry whose Publisher is the same client.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	mqtt       MQTTClient
	dispatcher Dispatcher
	qos        byte
	topics     mqtt.Topics

	health *HealthReporter

	events chan echonet.RequestEvent

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	commands        atomic.Uint64
	commandsFailed  atomic.Uint64
	eventsDropped   atomic.Uint64
	statesPublished atomic.Uint64

	logger Logger
}

// Stats holds bridge counters.
type Stats struct {
	Commands        uint64
	CommandsFailed  uint64
	EventsDropped   uint64
	StatesPublished uint64
}

// NewBridge creates a bridge. Call Start to subscribe and begin publishing.
//
// Returns:
//   - ErrNoMQTT or ErrNoDispatcher when a required dependency is missing
func NewBridge(opts Options) (*Bridge, error) {
	if opts.MQTT == nil {
		return nil, ErrNoMQTT
	}
	if opts.Dispatcher == nil {
		return nil, ErrNoDispatcher
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	b := &Bridge{
		mqtt:       opts.MQTT,
		dispatcher: opts.Dispatcher,
		qos:        opts.QoS,
		events:     make(chan echonet.RequestEvent, eventQueueSize),
		done:       make(chan struct{}),
		logger:     logger,
	}

	b.health = NewHealthReporter(HealthReporterConfig{
		NodeID:     opts.NodeID,
		Version:    opts.Version,
		Interval:   opts.HealthInterval,
		Publisher:  opts.MQTT,
		Dispatcher: opts.Dispatcher,
		QoS:        opts.QoS,
	})
	b.health.SetLogger(logger)

	return b, nil
}

// Start subscribes to commands, publishes the current light state and
// starts the health reporter.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.health.PublishStarting(); err != nil {
		b.logger.Warn("failed to publish starting health", "error", err)
	}

	if err := b.mqtt.Subscribe(b.topics.AllCommands(), b.qos, b.handleCommand); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}

	b.wg.Add(1)
	go b.eventLoop()

	b.publishCurrentLightState()
	b.health.Start(ctx)

	b.logger.Info("MQTT bridge started", "topic", b.topics.AllCommands())
	return nil
}

// Stop drains pending state updates and publishes a final "stopping" health
// status. Safe to call multiple times.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		b.wg.Wait()
		b.health.Stop()
		b.logger.Info("MQTT bridge stopped")
	})
}

// Stats returns the bridge counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		Commands:        b.commands.Load(),
		CommandsFailed:  b.commandsFailed.Load(),
		EventsDropped:   b.eventsDropped.Load(),
		StatesPublished: b.statesPublished.Load(),
	}
}

// OnRequest observes dispatched requests and publishes the light state
// after every accepted operating status write, whatever its source.
// It never blocks; updates beyond the queue capacity are dropped.
func (b *Bridge) OnRequest(ev echonet.RequestEvent) {
	if _, ok := lightTransition(ev); !ok {
		return
	}

	select {
	case b.events <- ev:
	default:
		b.eventsDropped.Add(1)
	}
}

// lightTransition reports the new light state carried by an accepted
// operating status write.
func lightTransition(ev echonet.RequestEvent) (on, ok bool) {
	if ev.Object != devices.MonoLightObject || !ev.ESV.IsWrite() || !ev.Accepted {
		return false, false
	}
	if ev.Request.Code != devices.EPCOperatingStatus || len(ev.Request.Data) != 1 {
		return false, false
	}
	return ev.Request.Data[0] == devices.StatusOn, true
}

// readLight asks the light for its current operating status.
func readLight(d Dispatcher) (bool, error) {
	resp, err := d.Request(devices.MonoLightObject, echonet.ESVReadRequest, echonet.Property{Code: devices.EPCOperatingStatus})
	if err != nil {
		return false, err
	}
	if resp.ESV != echonet.ESVReadResponse || len(resp.Properties) != 1 || len(resp.Properties[0].Data) != 1 {
		return false, fmt.Errorf("%w: %s", ErrReadRejected, resp.ESV)
	}
	return resp.Properties[0].Data[0] == devices.StatusOn, nil
}

func (b *Bridge) eventLoop() {
	defer b.wg.Done()
	for {
		select {
		case ev := <-b.events:
			b.publishLightState(ev.Request.Data[0] == devices.StatusOn, ev.Time)
		case <-b.done:
			// Drain what is already queued.
			for {
				select {
				case ev := <-b.events:
					b.publishLightState(ev.Request.Data[0] == devices.StatusOn, ev.Time)
				default:
					return
				}
			}
		}
	}
}

// publishCurrentLightState reads operating status so retained state is
// correct from the first connection.
func (b *Bridge) publishCurrentLightState() {
	on, err := readLight(b.dispatcher)
	if err != nil {
		b.logger.Warn("failed to read light state", "error", err)
		return
	}
	b.publishLightState(on, time.Now())
}

func (b *Bridge) publishLightState(on bool, at time.Time) {
	object := devices.MonoLightObject.String()
	msg := NewStateMessage(devices.MonoLightObject, map[string]any{"on": on}, at)
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("failed to marshal light state", "error", err)
		return
	}
	if err := b.mqtt.Publish(b.topics.State(object), payload, b.qos, true); err != nil {
		b.logger.Warn("failed to publish light state", "error", err)
	} else {
		b.statesPublished.Add(1)
	}
}

// handleCommand processes a message from echonet-sensehat/command/{eoj}.
func (b *Bridge) handleCommand(topic string, payload []byte) {
	b.commands.Add(1)

	objectText, ok := mqtt.ObjectFromTopic(topic)
	if !ok {
		b.commandsFailed.Add(1)
		b.logger.Warn("command on unexpected topic", "topic", topic)
		return
	}
	object, err := echonet.ParseObjectCode(objectText)
	if err != nil {
		b.commandsFailed.Add(1)
		b.logger.Warn("command for invalid object", "topic", topic, "error", err)
		return
	}

	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.fail(CommandMessage{ID: uuid.NewString()}, object, ErrCodeInvalidPayload, "payload is not a command message")
		return
	}
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}

	b.logger.Debug("command received", "object", object.String(), "command", cmd.Command, "id", cmd.ID, "source", cmd.Source)

	if object != devices.MonoLightObject {
		b.fail(cmd, object, ErrCodeNotConfigured, "object does not accept commands")
		return
	}

	var status byte
	switch strings.ToLower(cmd.Command) {
	case CommandOn:
		status = devices.StatusOn
	case CommandOff:
		status = devices.StatusOff
	default:
		b.fail(cmd, object, ErrCodeInvalidCommand, fmt.Sprintf("unknown command %q", cmd.Command))
		return
	}

	resp, err := b.dispatcher.Request(object, echonet.ESVWriteRequest, echonet.Property{
		Code: devices.EPCOperatingStatus,
		Data: []byte{status},
	})
	if err != nil {
		b.fail(cmd, object, ErrCodeProtocolError, err.Error())
		return
	}
	if resp.ESV != echonet.ESVWriteResponse {
		b.fail(cmd, object, ErrCodeRejected, fmt.Sprintf("device answered %s", resp.ESV))
		return
	}

	b.publishAck(NewAckMessage(cmd, object))
}

func (b *Bridge) fail(cmd CommandMessage, object echonet.ObjectCode, code, message string) {
	b.commandsFailed.Add(1)
	b.logger.Warn("command failed", "object", object.String(), "id", cmd.ID, "code", code, "message", message)
	b.publishAck(NewAckError(cmd, object, code, message))
}

func (b *Bridge) publishAck(ack AckMessage) {
	payload, err := json.Marshal(ack)
	if err != nil {
		b.logger.Error("failed to marshal ack", "error", err)
		return
	}
	if err := b.mqtt.Publish(b.topics.Ack(ack.Object), payload, b.qos, false); err != nil {
		b.logger.Warn("failed to publish ack", "command_id", ack.CommandID, "error", err)
	}
}
