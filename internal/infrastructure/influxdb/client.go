package influxdb

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/echonet-sensehat/internal/infrastructure/config"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPingTimeout    = 5 * time.Second

	defaultBatchSize     = 100
	defaultFlushInterval = 10 * time.Second

	// ServiceTag is added to every point as service=echonet-sensehat.
	ServiceTag = "echonet-sensehat"
)

// Client is a non-blocking, batched writer for sensor readings.
//
// The zero value and a closed Client drop every write.
//
// Thread Safety: All methods are safe for concurrent use.
type Client struct {
	influx   influxdb2.Client
	writeAPI api.WriteAPI

	open        atomic.Bool
	writeErrors atomic.Uint64

	onError   func(err error)
	onErrorMu sync.RWMutex
}

// clientOptions maps the influxdb config section onto client options.
// Readings arrive at most once a second, so points carry second precision.
func clientOptions(cfg config.InfluxDBConfig) *influxdb2.Options {
	batch := defaultBatchSize
	if cfg.BatchSize > 0 {
		batch = cfg.BatchSize
	}
	flush := defaultFlushInterval
	if cfg.FlushInterval > 0 {
		flush = time.Duration(cfg.FlushInterval) * time.Second
	}

	return influxdb2.DefaultOptions().
		SetBatchSize(uint(batch)).                    //nolint:gosec // positive
		SetFlushInterval(uint(flush.Milliseconds())). //nolint:gosec // positive
		SetPrecision(time.Second).
		SetUseGZip(true).
		AddDefaultTag("service", ServiceTag)
}

// ping reports whether the server answers and says it is ready.
func ping(ctx context.Context, influx influxdb2.Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	healthy, err := influx.Ping(ctx)
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	if !healthy {
		return fmt.Errorf("server not healthy")
	}
	return nil
}

// Connect creates the client and pings the server once.
//
// Returns:
//   - ErrDisabled when cfg.Enabled is false
//   - ErrConnectionFailed when the server cannot be reached
func Connect(cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	influx := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, clientOptions(cfg))
	if err := ping(context.Background(), influx, defaultConnectTimeout); err != nil {
		influx.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c := &Client{
		influx:   influx,
		writeAPI: influx.WriteAPI(cfg.Org, cfg.Bucket),
	}
	c.open.Store(true)
	go c.drainErrors(c.writeAPI.Errors())

	return c, nil
}

// drainErrors forwards asynchronous batch failures to the callback. The
// channel closes when the client is closed.
func (c *Client) drainErrors(errs <-chan error) {
	for err := range errs {
		c.writeErrors.Add(1)

		c.onErrorMu.RLock()
		callback := c.onError
		c.onErrorMu.RUnlock()
		if callback != nil {
			callback(err)
		}
	}
}

// Close flushes pending points and releases the client.
func (c *Client) Close() error {
	if !c.open.Swap(false) {
		return nil
	}
	c.writeAPI.Flush()
	c.influx.Close()
	return nil
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if err := ping(ctx, c.influx, defaultPingTimeout); err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	return nil
}

// IsConnected reports whether the client accepts writes.
func (c *Client) IsConnected() bool {
	return c.open.Load()
}

// WriteErrors returns the number of failed batch writes so far.
func (c *Client) WriteErrors() uint64 {
	return c.writeErrors.Load()
}

// SetOnError sets the callback for asynchronous write failures.
func (c *Client) SetOnError(callback func(err error)) {
	c.onErrorMu.Lock()
	c.onError = callback
	c.onErrorMu.Unlock()
}

// Flush blocks until buffered points are sent. No-op after Close.
func (c *Client) Flush() {
	if c.IsConnected() {
		c.writeAPI.Flush()
	}
}
