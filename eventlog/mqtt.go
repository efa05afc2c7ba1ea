package eventlog

import (
	"encoding/json"
	"fmt"
)

// Publisher is the part of the MQTT client the event sink needs.
type Publisher interface {
	Publish(topic string, payload string)
}

// MQTT publishes each event as JSON to a fixed topic.
type MQTT struct {
	pub   Publisher
	topic string
}

// NewMQTT creates an MQTT sink.
func NewMQTT(pub Publisher, topic string) *MQTT {
	return &MQTT{pub: pub, topic: topic}
}

// Write implements Sink.
func (m *MQTT) Write(e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	m.pub.Publish(m.topic, string(payload))
	return nil
}
