// Package bridge exposes the Sense HAT node on MQTT.
//
// Everything goes through the echonet dispatcher so the MQTT surface sees
// exactly what an ECHONET Lite controller would see:
//
//   - Commands on echonet-sensehat/command/{eoj} become local SetC requests
//     for operating status (0x80). The outcome is acknowledged on
//     echonet-sensehat/ack/{eoj}.
//   - A HealthReporter publishes a retained HealthMessage on
//     echonet-sensehat/health, the same topic the broker uses for the
//     client's Last Will.
//
// Telemetry runs independently of the Bridge. Its Sampler reads the measured
// value (0xE0) of each sensor every telemetry interval and fans the decoded
// value out to retained state (when MQTT is up), InfluxDB and the property
// history. Light transitions also go to InfluxDB.
//
// Message formats are in messages.go.
package bridge
