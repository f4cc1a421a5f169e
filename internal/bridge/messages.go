package bridge

import (
	"time"

	"github.com/nerrad567/echonet-sensehat/internal/echonet"
)

// Protocol is the value of the protocol field on outgoing messages.
const Protocol = "echonet"

// Commands accepted on the command topic.
const (
	CommandOn  = "on"
	CommandOff = "off"
)

// CommandMessage arrives on echonet-sensehat/command/{eoj}.
type CommandMessage struct {
	// ID correlates the acknowledgement. Assigned when empty.
	ID string `json:"id"`

	Timestamp time.Time `json:"timestamp"`

	// Command is "on" or "off".
	Command string `json:"command"`

	// Source says who issued the command, e.g. "dashboard" or "automation".
	Source string `json:"source,omitempty"`
}

// AckStatus is the outcome of a command.
type AckStatus string

const (
	AckAccepted AckStatus = "accepted"
	AckFailed   AckStatus = "failed"
)

// AckMessage is published on echonet-sensehat/ack/{eoj}. Never retained.
type AckMessage struct {
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`
	Object    string    `json:"object"`
	Status    AckStatus `json:"status"`
	Protocol  string    `json:"protocol"`
	Error     *AckError `json:"error,omitempty"`
}

// AckError explains a failed command.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StateMessage is published retained on echonet-sensehat/state/{eoj}:
//
//	{"object":"0x001101","state":{"temperature":21.5},"protocol":"echonet",...}
type StateMessage struct {
	Object    string         `json:"object"`
	Timestamp time.Time      `json:"timestamp"`
	State     map[string]any `json:"state"`
	Protocol  string         `json:"protocol"`
}

// HealthStatus is the node's operational status.
type HealthStatus string

const (
	HealthStarting HealthStatus = "starting"
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage is published retained on echonet-sensehat/health.
type HealthMessage struct {
	Node           string           `json:"node"`
	Timestamp      time.Time        `json:"timestamp"`
	Status         HealthStatus     `json:"status"`
	Version        string           `json:"version"`
	UptimeSeconds  int64            `json:"uptime_seconds"`
	Transport      *TransportStatus `json:"transport,omitempty"`
	Statistics     *NodeStatistics  `json:"statistics,omitempty"`
	DevicesManaged int              `json:"devices_managed"`
	Reason         string           `json:"reason,omitempty"`
}

// TransportStatus summarises the UDP transport.
type TransportStatus struct {
	Open           bool       `json:"open"`
	PacketsRx      uint64     `json:"packets_rx"`
	PacketsTx      uint64     `json:"packets_tx"`
	PacketsDropped uint64     `json:"packets_dropped"`
	ParseErrors    uint64     `json:"parse_errors"`
	LastActivity   *time.Time `json:"last_activity,omitempty"`
}

// NodeStatistics summarises request handling.
type NodeStatistics struct {
	FramesRx         uint64 `json:"frames_rx"`
	FramesTx         uint64 `json:"frames_tx"`
	FramesIgnored    uint64 `json:"frames_ignored"`
	PropertiesDenied uint64 `json:"properties_denied"`
	ErrorsTotal      uint64 `json:"errors_total"`
}

// NewAckMessage builds a successful acknowledgement.
func NewAckMessage(cmd CommandMessage, object echonet.ObjectCode) AckMessage {
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		Object:    object.String(),
		Status:    AckAccepted,
		Protocol:  Protocol,
	}
}

// NewAckError builds a failed acknowledgement.
func NewAckError(cmd CommandMessage, object echonet.ObjectCode, code, message string) AckMessage {
	ack := NewAckMessage(cmd, object)
	ack.Status = AckFailed
	ack.Error = &AckError{Code: code, Message: message}
	return ack
}

// NewStateMessage builds a state update for object.
func NewStateMessage(object echonet.ObjectCode, state map[string]any, at time.Time) StateMessage {
	return StateMessage{
		Object:    object.String(),
		Timestamp: at.UTC(),
		State:     state,
		Protocol:  Protocol,
	}
}

// NewHealthMessage builds a health report from the dispatcher statistics.
func NewHealthMessage(nodeID, version string, status HealthStatus, stats echonet.NodeStats, devices int, started time.Time) HealthMessage {
	msg := HealthMessage{
		Node:           nodeID,
		Timestamp:      time.Now().UTC(),
		Status:         status,
		Version:        version,
		UptimeSeconds:  int64(time.Since(started).Seconds()),
		DevicesManaged: devices,
		Transport: &TransportStatus{
			Open:           stats.Transport.Open,
			PacketsRx:      stats.Transport.PacketsRx,
			PacketsTx:      stats.Transport.PacketsTx,
			PacketsDropped: stats.Transport.PacketsDropped,
			ParseErrors:    stats.Transport.ParseErrors,
		},
		Statistics: &NodeStatistics{
			FramesRx:         stats.FramesRx,
			FramesTx:         stats.FramesTx,
			FramesIgnored:    stats.FramesIgnored,
			PropertiesDenied: stats.PropertiesDenied,
			ErrorsTotal:      stats.ErrorsTotal,
		},
	}
	if !stats.Transport.LastActivity.IsZero() {
		last := stats.Transport.LastActivity.UTC()
		msg.Transport.LastActivity = &last
	}
	return msg
}
