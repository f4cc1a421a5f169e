// Package mqtt provides the broker connection behind the node's MQTT gateway.
//
// It wraps paho.mqtt.golang with:
//   - auto-reconnect and subscription replay
//   - a retained Last Will on the health topic
//   - payload, QoS and topic validation
//   - panic recovery around message handlers
//
// Topic layout (see Topics):
//
//	echonet-sensehat/state/{eoj}
//	echonet-sensehat/command/{eoj}
//	echonet-sensehat/ack/{eoj}
//	echonet-sensehat/health
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllCommands(), client.QoS(), handler)
//
// Use TLS (mqtt.broker.tls) whenever the broker is not on localhost.
package mqtt
