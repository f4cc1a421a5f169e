package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Sense HAT driver names.
const (
	DriverHardware  = "hardware"
	DriverSimulator = "simulator"
)

// Config is the root configuration structure for the Sense HAT node.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Node      NodeConfig      `yaml:"node"`
	SenseHAT  SenseHATConfig  `yaml:"sensehat"`
	Light     LightConfig     `yaml:"light"`
	Simulator SimulatorConfig `yaml:"simulator"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Database  DatabaseConfig  `yaml:"database"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// NodeConfig contains ECHONET Lite node settings.
type NodeConfig struct {
	// Interface names the network interface for multicast. Empty lets the kernel choose.
	Interface      string `yaml:"interface"`
	MulticastGroup string `yaml:"multicast_group"`
	Port           int    `yaml:"port"`

	// ManufacturerCode is 6 hex digits. FFFFFF marks an experimental node.
	ManufacturerCode string `yaml:"manufacturer_code"`

	// NodeID seeds the identification number. Keep it stable across restarts.
	NodeID string `yaml:"node_id"`
}

// SenseHATConfig selects the board driver.
type SenseHATConfig struct {
	Driver      string `yaml:"driver"`
	I2CBus      int    `yaml:"i2c_bus"`
	Framebuffer string `yaml:"framebuffer"` // empty = auto-detect
}

// LightConfig contains LED matrix settings for the mono light.
type LightConfig struct {
	Text          string `yaml:"text"`
	Foreground    string `yaml:"foreground"`
	Background    string `yaml:"background"`
	ScrollDelayMS int    `yaml:"scroll_delay_ms"`
}

// SimulatorConfig holds the readings reported by the simulator driver.
type SimulatorConfig struct {
	Temperature float64 `yaml:"temperature"`
	Humidity    float64 `yaml:"humidity"`
	Pressure    float64 `yaml:"pressure"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// DatabaseConfig contains SQLite settings for the property history.
type DatabaseConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	WALMode       bool   `yaml:"wal_mode"`
	BusyTimeout   int    `yaml:"busy_timeout"`
	RetentionDays int    `yaml:"retention_days"`
}

// TelemetryConfig sets the sampling and health publishing periods, in seconds.
type TelemetryConfig struct {
	Interval       int `yaml:"interval"`
	HealthInterval int `yaml:"health_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// envPrefix is prepended to every environment override.
const envPrefix = "ECHONET_SENSEHAT_"

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults); skipped when path is empty
//  3. A .env file next to the YAML file, if present (never overrides the real environment)
//  4. Environment variables (override file values)
//
// Environment variables follow the pattern: ECHONET_SENSEHAT_SECTION_KEY
// For example: ECHONET_SENSEHAT_MQTT_HOST, ECHONET_SENSEHAT_NODE_ID
//
// Parameters:
//   - path: Path to the YAML configuration file, or "" for defaults only
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	envFile := ".env"
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
		envFile = filepath.Join(filepath.Dir(path), ".env")
	}

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading env file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Node: NodeConfig{
			MulticastGroup:   "224.0.23.0",
			Port:             3610,
			ManufacturerCode: "FFFFFF",
		},
		SenseHAT: SenseHATConfig{
			Driver: DriverHardware,
			I2CBus: 1,
		},
		Light: LightConfig{
			Text:          "ON",
			Foreground:    "FFFFFF",
			Background:    "000000",
			ScrollDelayMS: 100,
		},
		Simulator: SimulatorConfig{
			Temperature: 21.5,
			Humidity:    45,
			Pressure:    1013.25,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "echonet-sensehat",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		InfluxDB: InfluxDBConfig{
			URL:           "http://localhost:8086",
			Bucket:        "sensehat",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Database: DatabaseConfig{
			Path:          "./data/echonet-sensehat.db",
			WALMode:       true,
			BusyTimeout:   5,
			RetentionDays: 30,
		},
		Telemetry: TelemetryConfig{
			Interval:       60,
			HealthInterval: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: ECHONET_SENSEHAT_SECTION_KEY
func applyEnvOverrides(cfg *Config) error {
	var errs []string

	str := func(key string, dst *string) {
		if v := os.Getenv(envPrefix + key); v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v := os.Getenv(envPrefix + key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s: %v", envPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v := os.Getenv(envPrefix + key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s: %v", envPrefix, key, err))
				return
			}
			*dst = n
		}
	}

	// Node
	str("NODE_INTERFACE", &cfg.Node.Interface)
	str("NODE_ID", &cfg.Node.NodeID)

	// Sense HAT
	str("SENSEHAT_DRIVER", &cfg.SenseHAT.Driver)

	// MQTT
	boolean("MQTT_ENABLED", &cfg.MQTT.Enabled)
	str("MQTT_HOST", &cfg.MQTT.Broker.Host)
	integer("MQTT_PORT", &cfg.MQTT.Broker.Port)
	str("MQTT_USERNAME", &cfg.MQTT.Auth.Username)
	str("MQTT_PASSWORD", &cfg.MQTT.Auth.Password)

	// InfluxDB
	boolean("INFLUXDB_ENABLED", &cfg.InfluxDB.Enabled)
	str("INFLUXDB_URL", &cfg.InfluxDB.URL)
	str("INFLUXDB_TOKEN", &cfg.InfluxDB.Token)

	// Database
	boolean("DATABASE_ENABLED", &cfg.Database.Enabled)
	str("DATABASE_PATH", &cfg.Database.Path)

	// Logging
	str("LOG_LEVEL", &cfg.Logging.Level)

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Node validation
	if ip := net.ParseIP(c.Node.MulticastGroup); ip == nil || ip.To4() == nil || !ip.IsMulticast() {
		errs = append(errs, "node.multicast_group must be an IPv4 multicast address")
	}
	if c.Node.Port < 1 || c.Node.Port > 65535 {
		errs = append(errs, "node.port must be between 1 and 65535")
	}
	if _, err := c.ManufacturerCode(); err != nil {
		errs = append(errs, "node.manufacturer_code must be 6 hex digits")
	}

	// Sense HAT validation
	switch c.SenseHAT.Driver {
	case DriverHardware, DriverSimulator:
	default:
		errs = append(errs, `sensehat.driver must be "hardware" or "simulator"`)
	}

	// Light validation
	if !isHexColour(c.Light.Foreground) {
		errs = append(errs, "light.foreground must be RRGGBB")
	}
	if !isHexColour(c.Light.Background) {
		errs = append(errs, "light.background must be RRGGBB")
	}
	if c.Light.ScrollDelayMS < 0 {
		errs = append(errs, "light.scroll_delay_ms must not be negative")
	}

	// MQTT validation
	if c.MQTT.Enabled {
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url and influxdb.bucket are required when influxdb is enabled")
	}

	// Database validation
	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when database is enabled")
	}
	if c.Database.RetentionDays < 0 {
		errs = append(errs, "database.retention_days must not be negative")
	}

	// Telemetry validation
	if c.Telemetry.Interval < 1 {
		errs = append(errs, "telemetry.interval must be at least 1 second")
	}
	if c.Telemetry.HealthInterval < 1 {
		errs = append(errs, "telemetry.health_interval must be at least 1 second")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ManufacturerCode returns node.manufacturer_code as an integer.
func (c *Config) ManufacturerCode() (uint32, error) {
	s := strings.TrimPrefix(strings.ToLower(c.Node.ManufacturerCode), "0x")
	if len(s) != 6 { //nolint:mnd // 3 bytes
		return 0, fmt.Errorf("manufacturer code %q: want 6 hex digits", c.Node.ManufacturerCode)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("manufacturer code %q: %w", c.Node.ManufacturerCode, err)
	}
	return uint32(v), nil
}

// GetScrollDelay returns the light scroll delay as a Duration.
func (c *Config) GetScrollDelay() time.Duration {
	return time.Duration(c.Light.ScrollDelayMS) * time.Millisecond
}

// GetTelemetryInterval returns the sampling interval as a Duration.
func (c *Config) GetTelemetryInterval() time.Duration {
	return time.Duration(c.Telemetry.Interval) * time.Second
}

// GetHealthInterval returns the health publishing interval as a Duration.
func (c *Config) GetHealthInterval() time.Duration {
	return time.Duration(c.Telemetry.HealthInterval) * time.Second
}

// GetRetention returns the history retention as a Duration. Zero keeps history forever.
func (c *Config) GetRetention() time.Duration {
	return time.Duration(c.Database.RetentionDays) * 24 * time.Hour
}

func isHexColour(s string) bool {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 { //nolint:mnd // RRGGBB
		return false
	}
	_, err := strconv.ParseUint(s, 16, 32)
	return err == nil
}
