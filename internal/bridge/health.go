package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/echonet-sensehat/internal/infrastructure/mqtt"
)

// DefaultHealthInterval is used when HealthReporterConfig.Interval is zero.
const DefaultHealthInterval = 30 * time.Second

// HealthPublisher publishes health messages. Satisfied by MQTTClient.
type HealthPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// HealthReporterConfig configures NewHealthReporter.
type HealthReporterConfig struct {
	NodeID  string
	Version string

	// Interval between reports. Default 30s.
	Interval time.Duration

	Publisher  HealthPublisher
	Dispatcher Dispatcher
	QoS        byte
}

// HealthReporter publishes a retained HealthMessage at a fixed interval.
type HealthReporter struct {
	nodeID     string
	version    string
	startTime  time.Time
	interval   time.Duration
	publisher  HealthPublisher
	dispatcher Dispatcher
	qos        byte
	topics     mqtt.Topics

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// NewHealthReporter creates a reporter. Call Start to begin reporting.
func NewHealthReporter(cfg HealthReporterConfig) *HealthReporter {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultHealthInterval
	}

	return &HealthReporter{
		nodeID:     cfg.NodeID,
		version:    cfg.Version,
		startTime:  time.Now(),
		interval:   interval,
		publisher:  cfg.Publisher,
		dispatcher: cfg.Dispatcher,
		qos:        cfg.QoS,
		done:       make(chan struct{}),
		logger:     noopLogger{},
	}
}

// Start begins periodic reporting until ctx is cancelled or Stop is called.
func (h *HealthReporter) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.reportLoop(ctx)
}

// Stop ends reporting and publishes a final "stopping" status.
// Safe to call multiple times.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()

		if err := h.publishStatus(HealthStopping, "shutdown"); err != nil {
			h.logError("failed to publish stopping health", err)
		}
	})
}

// SetLogger sets the logger for this reporter.
func (h *HealthReporter) SetLogger(logger Logger) {
	h.loggerMu.Lock()
	h.logger = logger
	h.loggerMu.Unlock()
}

// PublishStarting publishes a "starting" status.
func (h *HealthReporter) PublishStarting() error {
	return h.publishStatus(HealthStarting, "node starting")
}

// PublishNow publishes the current status immediately.
func (h *HealthReporter) PublishNow() error {
	status, reason := h.determineStatus()
	return h.publishStatus(status, reason)
}

func (h *HealthReporter) reportLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	if err := h.PublishNow(); err != nil {
		h.logError("failed to publish initial health", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			if err := h.PublishNow(); err != nil {
				h.logError("failed to publish health", err)
			}
		}
	}
}

func (h *HealthReporter) determineStatus() (HealthStatus, string) {
	if h.publisher == nil || !h.publisher.IsConnected() {
		return HealthDegraded, "MQTT disconnected"
	}
	if h.dispatcher == nil {
		return HealthDegraded, "no dispatcher"
	}
	stats := h.dispatcher.Stats()
	if !stats.Running {
		return HealthDegraded, "node not running"
	}
	if !stats.Transport.Open {
		return HealthDegraded, "transport closed"
	}
	return HealthHealthy, ""
}

func (h *HealthReporter) publishStatus(status HealthStatus, reason string) error {
	if h.publisher == nil {
		return nil
	}

	msg := h.message(status, reason)
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal health: %w", err)
	}
	return h.publisher.Publish(h.topics.Health(), payload, h.qos, true)
}

func (h *HealthReporter) message(status HealthStatus, reason string) HealthMessage {
	var msg HealthMessage
	if h.dispatcher == nil {
		msg = HealthMessage{
			Node:          h.nodeID,
			Timestamp:     time.Now().UTC(),
			Status:        status,
			Version:       h.version,
			UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		}
	} else {
		msg = NewHealthMessage(h.nodeID, h.version, status, h.dispatcher.Stats(), len(h.dispatcher.Devices()), h.startTime)
	}
	msg.Reason = reason
	return msg
}

func (h *HealthReporter) logError(msg string, err error) {
	h.loggerMu.RLock()
	logger := h.logger
	h.loggerMu.RUnlock()
	logger.Error(msg, "error", err)
}
