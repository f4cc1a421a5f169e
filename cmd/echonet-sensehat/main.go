// echonet-sensehat exposes a Raspberry Pi Sense HAT as an ECHONET Lite node.
//
// The node carries four device objects: air pressure, humidity and
// temperature sensors, and a mono functional light drawn on the LED matrix.
// Optionally it bridges the same objects to MQTT, writes sensor readings to
// InfluxDB and keeps a SQLite history of property requests.
//
// Usage:
//
//	echonet-sensehat [-v] [-config path]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/nerrad567/echonet-sensehat/internal/bridge"
	"github.com/nerrad567/echonet-sensehat/internal/devices"
	"github.com/nerrad567/echonet-sensehat/internal/echonet"
	"github.com/nerrad567/echonet-sensehat/internal/history"
	"github.com/nerrad567/echonet-sensehat/internal/infrastructure/config"
	"github.com/nerrad567/echonet-sensehat/internal/infrastructure/database"
	"github.com/nerrad567/echonet-sensehat/internal/infrastructure/influxdb"
	"github.com/nerrad567/echonet-sensehat/internal/infrastructure/logging"
	"github.com/nerrad567/echonet-sensehat/internal/infrastructure/mqtt"
	"github.com/nerrad567/echonet-sensehat/internal/node"
	"github.com/nerrad567/echonet-sensehat/internal/sensehat"
	"github.com/nerrad567/echonet-sensehat/migrations"
)

// Version information, set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/config.yaml"
	configEnv         = "ECHONET_SENSEHAT_CONFIG"
)

// options are the command-line settings.
type options struct {
	verbose    bool
	configPath string

	// transport replaces the UDP transport in tests.
	transport echonet.Transport
	// metrics replaces the InfluxDB client in tests.
	metrics   bridge.MetricsWriter
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2) //nolint:mnd // usage error
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func parseFlags(args []string, output io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("echonet-sensehat", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.BoolVar(&opts.verbose, "v", false, "enable debug logging")
	fs.StringVar(&opts.configPath, "config", "", "path to config.yaml (default $"+configEnv+" or "+defaultConfigPath+")")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}

// run starts the node and its optional services, blocks until ctx is
// cancelled, then shuts everything down in reverse order.
func run(ctx context.Context, opts options) error {
	log := logging.Default()
	log.Info("starting echonet-sensehat",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath(opts.configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}

	log = logging.New(cfg.Logging, version)
	if configPath == "" {
		log.Info("no configuration file, using defaults")
	} else {
		log.Info("configuration loaded", "path", configPath)
	}

	backend, err := openBackend(cfg, log)
	if err != nil {
		return fmt.Errorf("opening Sense HAT: %w", err)
	}

	nodeOpts, err := nodeOptions(cfg, backend, log)
	if err != nil {
		backend.Close() //nolint:errcheck // already failing
		return err
	}
	nodeOpts.Transport = opts.transport

	senseNode, err := node.New(nodeOpts)
	if err != nil {
		backend.Close() //nolint:errcheck // already failing
		return fmt.Errorf("creating node: %w", err)
	}
	defer func() {
		log.Info("closing Sense HAT")
		if closeErr := senseNode.Close(); closeErr != nil {
			log.Error("error closing node", "error", closeErr)
		}
	}()

	dispatcher := senseNode.Dispatcher()
	var observers []func(echonet.RequestEvent)

	// Optional services. A failure disables the service but keeps the
	// ECHONET node running.

	// Property history
	var recorder *history.Recorder
	if cfg.Database.Enabled {
		var db *database.DB
		recorder, db, err = startHistory(ctx, cfg, log)
		if err != nil {
			log.Error("property history unavailable", "error", err)
			recorder = nil
		} else {
			defer func() {
				log.Info("closing database")
				if closeErr := db.Close(); closeErr != nil {
					log.Error("error closing database", "error", closeErr)
				}
			}()
			defer func() {
				log.Info("stopping history recorder")
				recorder.Stop()
			}()
			observers = append(observers, recorder.OnRequest)
		}
	} else {
		log.Info("property history disabled")
	}

	// InfluxDB
	var metrics bridge.MetricsWriter
	switch {
	case opts.metrics != nil:
		metrics = opts.metrics
	case cfg.InfluxDB.Enabled:
		influxClient, connectErr := influxdb.Connect(cfg.InfluxDB)
		if connectErr != nil {
			log.Error("InfluxDB unavailable", "url", cfg.InfluxDB.URL, "error", connectErr)
			break
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
		metrics = influxClient
	default:
		log.Info("InfluxDB disabled")
	}

	// MQTT bridge
	var mqttBridge *bridge.Bridge
	var publisher bridge.Publisher
	var qos byte
	if cfg.MQTT.Enabled {
		mqttClient, connectErr := mqtt.Connect(cfg.MQTT)
		if connectErr != nil {
			log.Error("MQTT unavailable, bridge disabled",
				"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
				"error", connectErr,
			)
		} else {
			defer func() {
				log.Info("disconnecting from MQTT")
				if closeErr := mqttClient.Close(); closeErr != nil {
					log.Error("error closing MQTT", "error", closeErr)
				}
			}()
			mqttClient.SetLogger(log.Component("mqtt"))
			mqttClient.SetOnConnect(func() {
				log.Info("MQTT reconnected")
			})
			mqttClient.SetOnDisconnect(func(err error) {
				log.Warn("MQTT disconnected", "error", err)
			})
			log.Info("MQTT connected",
				"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
				"client_id", cfg.MQTT.Broker.ClientID,
			)

			adapter := &mqttBridgeAdapter{client: mqttClient}
			publisher, qos = adapter, mqttClient.QoS()
			mqttBridge, err = newBridge(cfg, adapter, qos, dispatcher, log)
			if err != nil {
				log.Error("MQTT bridge disabled", "error", err)
				mqttBridge = nil
			} else {
				observers = append(observers, mqttBridge.OnRequest)
			}
		}
	} else {
		log.Info("MQTT bridge disabled")
	}

	// Telemetry feeds whichever sinks came up, with or without MQTT.
	telemetry, err := newTelemetry(cfg, dispatcher, publisher, qos, metrics, recorder, log)
	if err != nil {
		log.Info("telemetry disabled", "reason", err)
		telemetry = nil
	} else {
		observers = append(observers, telemetry.OnRequest)
	}

	if len(observers) > 0 {
		dispatcher.SetOnRequest(fanOut(observers...))
	}

	if err := senseNode.Start(ctx); err != nil {
		return fmt.Errorf("starting node: %w", err)
	}
	defer func() {
		log.Info("stopping ECHONET node")
		if stopErr := senseNode.Stop(); stopErr != nil {
			log.Error("error stopping node", "error", stopErr)
		}
	}()
	log.Info("ECHONET Lite node started",
		"port", cfg.Node.Port,
		"multicast_group", cfg.Node.MulticastGroup,
		"devices", len(dispatcher.Devices()),
	)

	if mqttBridge != nil {
		if err := mqttBridge.Start(ctx); err != nil {
			log.Error("MQTT bridge failed to start", "error", err)
		} else {
			defer func() {
				log.Info("stopping MQTT bridge")
				mqttBridge.Stop()
			}()
		}
	}

	if telemetry != nil {
		telemetry.Start(ctx)
		defer func() {
			log.Info("stopping telemetry")
			telemetry.Stop()
		}()
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath picks the flag value, then the environment, then the
// default path. A missing default file yields "" so defaults apply.
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if path := os.Getenv(configEnv); path != "" {
		return path
	}
	if _, err := os.Stat(defaultConfigPath); err != nil {
		return ""
	}
	return defaultConfigPath
}

func openBackend(cfg *config.Config, log *logging.Logger) (sensehat.Backend, error) {
	if cfg.SenseHAT.Driver == config.DriverSimulator {
		log.Info("using simulated Sense HAT",
			"temperature", cfg.Simulator.Temperature,
			"humidity", cfg.Simulator.Humidity,
			"pressure", cfg.Simulator.Pressure,
		)
		return sensehat.NewSimulator(cfg.Simulator.Temperature, cfg.Simulator.Humidity, cfg.Simulator.Pressure), nil
	}

	hat, err := sensehat.Open(sensehat.Config{
		I2CBus:      cfg.SenseHAT.I2CBus,
		Framebuffer: cfg.SenseHAT.Framebuffer,
		ScrollDelay: cfg.GetScrollDelay(),
		Logger:      log.Component("sensehat"),
	})
	if err != nil {
		return nil, err
	}
	log.Info("Sense HAT opened", "i2c_bus", cfg.SenseHAT.I2CBus)
	return hat, nil
}

func nodeOptions(cfg *config.Config, backend sensehat.Backend, log *logging.Logger) (node.Options, error) {
	manufacturer, err := cfg.ManufacturerCode()
	if err != nil {
		return node.Options{}, err
	}
	fg, err := sensehat.ParseColour(cfg.Light.Foreground)
	if err != nil {
		return node.Options{}, fmt.Errorf("light foreground: %w", err)
	}
	bg, err := sensehat.ParseColour(cfg.Light.Background)
	if err != nil {
		return node.Options{}, fmt.Errorf("light background: %w", err)
	}

	return node.Options{
		Backend: backend,
		UDP: echonet.UDPConfig{
			ListenAddress:  ":" + strconv.Itoa(cfg.Node.Port),
			MulticastGroup: cfg.Node.MulticastGroup,
			Interface:      cfg.Node.Interface,
			Port:           cfg.Node.Port,
		},
		Node: echonet.NodeConfig{
			ManufacturerCode: manufacturer,
			NodeID:           cfg.Node.NodeID,
		},
		Light: devices.LightConfig{
			Text:       cfg.Light.Text,
			Foreground: fg,
			Background: bg,
		},
		Logger: log.Component("echonet"),
	}, nil
}

func startHistory(ctx context.Context, cfg *config.Config, log *logging.Logger) (*history.Recorder, *database.DB, error) {
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	recorder := history.NewRecorder(history.NewSQLiteStore(db), history.RecorderConfig{
		Retention: cfg.GetRetention(),
		Logger:    log.Component("history"),
	})
	recorder.Start(ctx)
	return recorder, db, nil
}

func newBridge(
	cfg *config.Config,
	client bridge.MQTTClient,
	qos byte,
	dispatcher *echonet.Node,
	log *logging.Logger,
) (*bridge.Bridge, error) {
	b, err := bridge.NewBridge(bridge.Options{
		MQTT:           client,
		Dispatcher:     dispatcher,
		NodeID:         nodeID(cfg),
		Version:        version,
		QoS:            qos,
		HealthInterval: cfg.GetHealthInterval(),
		Logger:         log.Component("bridge"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating MQTT bridge: %w", err)
	}
	return b, nil
}

// newTelemetry builds the sampler for the sinks that are up. It returns
// bridge.ErrNoSinks when none are.
func newTelemetry(
	cfg *config.Config,
	dispatcher *echonet.Node,
	publisher bridge.Publisher,
	qos byte,
	metrics bridge.MetricsWriter,
	recorder *history.Recorder,
	log *logging.Logger,
) (*bridge.Telemetry, error) {
	tcfg := bridge.TelemetryConfig{
		Dispatcher: dispatcher,
		Interval:   cfg.GetTelemetryInterval(),
		Publisher:  publisher,
		Metrics:    metrics,
		QoS:        qos,
		Logger:     log.Component("telemetry"),
	}
	// Leave the interface nil rather than holding a typed nil pointer.
	if recorder != nil {
		tcfg.History = recorder
	}
	return bridge.NewTelemetry(tcfg)
}

// nodeID names the node in health messages.
func nodeID(cfg *config.Config) string {
	if cfg.Node.NodeID != "" {
		return cfg.Node.NodeID
	}
	return cfg.MQTT.Broker.ClientID
}

// fanOut combines request observers. echonet.Node holds a single observer.
func fanOut(observers ...func(echonet.RequestEvent)) func(echonet.RequestEvent) {
	return func(ev echonet.RequestEvent) {
		for _, observe := range observers {
			observe(ev)
		}
	}
}

// mqttBridgeAdapter adapts mqtt.Client to bridge.MQTTClient. Bridge
// handlers report failures through acks, so they never return an error.
type mqttBridgeAdapter struct {
	client *mqtt.Client
}

func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}
