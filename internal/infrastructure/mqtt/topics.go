package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every topic the node publishes or subscribes to.
//
//	echonet-sensehat/state/{eoj}     retained device state
//	echonet-sensehat/command/{eoj}   commands for a device object
//	echonet-sensehat/ack/{eoj}       command acknowledgements
//	echonet-sensehat/health          retained health, also the LWT target
const TopicPrefix = "echonet-sensehat"

// Topics provides builders for the node's MQTT topics.
//
// Object codes are rendered by the caller (for example "0x001101") so this
// package stays independent of the echonet package.
//
//	topics := mqtt.Topics{}
//	topics.State("0x001101") // "echonet-sensehat/state/0x001101"
type Topics struct{}

// State returns the retained state topic for a device object.
func (Topics) State(object string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, object)
}

// Command returns the command topic for a device object.
func (Topics) Command(object string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, object)
}

// Ack returns the acknowledgement topic for a device object.
func (Topics) Ack(object string) string {
	return fmt.Sprintf("%s/ack/%s", TopicPrefix, object)
}

// Health returns the node health topic.
func (Topics) Health() string {
	return TopicPrefix + "/health"
}

// AllCommands matches commands for any device object.
//
// Pattern: echonet-sensehat/command/+
func (Topics) AllCommands() string {
	return TopicPrefix + "/command/+"
}

// AllStates matches state for any device object.
//
// Pattern: echonet-sensehat/state/+
func (Topics) AllStates() string {
	return TopicPrefix + "/state/+"
}

// AllTopics matches everything under the prefix.
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}

// ObjectFromTopic returns the last level of a state, command or ack topic.
// ok is false when the topic is not under the prefix or has no object level.
func ObjectFromTopic(topic string) (object string, ok bool) {
	rest, found := strings.CutPrefix(topic, TopicPrefix+"/")
	if !found {
		return "", false
	}
	idx := strings.LastIndexByte(rest, '/')
	if idx <= 0 || idx == len(rest)-1 {
		return "", false
	}
	return rest[idx+1:], true
}
