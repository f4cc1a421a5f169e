// Package logging provides structured logging for the ECHONET Lite SenseHAT node.
//
// It wraps log/slog so that every entry carries the service name and build
// version, and so that the same *Logger can be passed to the echonet,
// sensehat and devices packages which only declare the methods they need.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Component("udp").Info("listening", "port", 3610)
//
// Never log MQTT passwords or InfluxDB tokens.
package logging
