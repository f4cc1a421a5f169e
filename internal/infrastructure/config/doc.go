// Package config handles loading and validating the node configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Reading an optional .env file
//   - Overriding with ECHONET_SENSEHAT_* environment variables
//   - Validation of required fields
//
// Security Considerations:
//   - MQTT passwords and InfluxDB tokens should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Node.MulticastGroup)
package config
