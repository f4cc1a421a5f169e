package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/echonet-sensehat/internal/infrastructure/config"
)

// Logger interface for optional logging.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MessageHandler is invoked for each received message on a paho goroutine.
// A returned error is logged; it does not affect acknowledgement.
type MessageHandler func(topic string, payload []byte) error

// hooks are the caller's connection callbacks and logger.
type hooks struct {
	mu           sync.RWMutex
	onConnect    func()
	onDisconnect func(err error)
	logger       Logger
}

func (h *hooks) snapshot() (func(), func(error), Logger) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.onConnect, h.onDisconnect, h.logger
}

// Client is the node's MQTT connection. It announces the node on the health
// topic and keeps the gateway's subscriptions alive across reconnects.
//
// The zero value is a disconnected client: every operation fails with
// ErrNotConnected and Close is a no-op.
//
// Thread Safety: All methods are safe for concurrent use.
type Client struct {
	paho      pahomqtt.Client
	cfg       config.MQTTConfig
	connected atomic.Bool

	subs  registry
	hooks hooks
}

// Connect dials the broker described by cfg.
//
// The broker holds a retained "offline" Last Will on the health topic; every
// successful (re)connect replays subscriptions and overwrites it with
// "online".
//
// Returns:
//   - ErrConnectionFailed if the first connect fails or times out
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{cfg: cfg}

	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.onUp() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.onDown(err) })
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
		if _, _, logger := c.hooks.snapshot(); logger != nil {
			logger.Info("reconnecting to MQTT broker", "broker", brokerURL(cfg))
		}
	})

	c.paho = pahomqtt.NewClient(opts)
	if err := await(c.paho.Connect(), defaultConnectTimeout, ErrConnectionFailed); err != nil {
		return nil, err
	}

	// onUp runs asynchronously; IsConnected must hold once Connect returns.
	c.connected.Store(true)
	return c, nil
}

// onUp restores subscriptions and announces the node.
func (c *Client) onUp() {
	c.connected.Store(true)

	c.subs.each(func(s subscription) {
		c.paho.Subscribe(s.topic, s.qos, c.wrapHandler(s.handler))
	})
	c.announce(StatusOnline, "")

	if onConnect, _, _ := c.hooks.snapshot(); onConnect != nil {
		onConnect()
	}
}

func (c *Client) onDown(err error) {
	c.connected.Store(false)

	_, onDisconnect, logger := c.hooks.snapshot()
	if logger != nil {
		logger.Warn("MQTT connection lost", "error", err)
	}
	if onDisconnect != nil {
		onDisconnect(err)
	}
}

// announce publishes a retained connection status on the health topic
// without waiting for the broker.
func (c *Client) announce(status, reason string) pahomqtt.Token {
	return c.paho.Publish(Topics{}.Health(), c.QoS(), true, statusMessage(status, c.cfg.Broker.ClientID, reason))
}

// Close announces a graceful "offline" and disconnects.
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}
	if c.IsConnected() {
		c.announce(StatusOffline, "graceful_shutdown").WaitTimeout(defaultPublishTimeout)
	}
	c.paho.Disconnect(defaultDisconnectQuiesce)
	c.connected.Store(false)
	return nil
}

// HealthCheck reports ErrNotConnected when the broker link is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports whether the broker link is up.
func (c *Client) IsConnected() bool {
	return c.connected.Load() && c.paho != nil && c.paho.IsConnected()
}

// QoS returns the configured default QoS.
func (c *Client) QoS() byte {
	return byte(c.cfg.QoS) //nolint:gosec // validated 0-2 by config
}

// SetOnConnect sets a callback for the initial connect and every reconnect.
func (c *Client) SetOnConnect(callback func()) {
	c.hooks.mu.Lock()
	c.hooks.onConnect = callback
	c.hooks.mu.Unlock()
}

// SetOnDisconnect sets a callback for connection loss.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.hooks.mu.Lock()
	c.hooks.onDisconnect = callback
	c.hooks.mu.Unlock()
}

// SetLogger sets the logger used for handler errors and connection events.
func (c *Client) SetLogger(logger Logger) {
	c.hooks.mu.Lock()
	c.hooks.logger = logger
	c.hooks.mu.Unlock()
}

// wrapHandler adapts a MessageHandler to paho, logging returned errors and
// recovering panics so one bad command cannot kill the paho router.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		_, _, logger := c.hooks.snapshot()
		defer func() {
			if r := recover(); r != nil && logger != nil {
				logger.Error("MQTT handler panic recovered", "topic", msg.Topic(), "panic", r)
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil && logger != nil {
			logger.Warn("MQTT handler returned error", "topic", msg.Topic(), "error", err)
		}
	}
}
