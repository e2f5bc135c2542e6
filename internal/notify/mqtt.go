package notify

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTSink publishes message text to <topic>/<event>.
type MQTTSink struct {
	client mqtt.Client
	topic  string
	qos    byte
}

// NewMQTTSink connects to broker and returns a sink publishing under topic.
func NewMQTTSink(broker, clientID, topic string) (*MQTTSink, error) {
	if broker == "" {
		return nil, fmt.Errorf("missing mqtt broker")
	}
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return newMQTTSink(client, topic), nil
}

func newMQTTSink(client mqtt.Client, topic string) *MQTTSink {
	if topic == "" {
		topic = "factory/notifications"
	}
	return &MQTTSink{client: client, topic: topic, qos: 1}
}

func (s *MQTTSink) Send(ctx context.Context, msg Message) error {
	token := s.client.Publish(s.topic+"/"+string(msg.Event), s.qos, false, msg.Text)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt publish: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("mqtt publish: %w", ctx.Err())
	}
}

// Close disconnects from the broker, allowing in-flight publishes 250ms.
func (s *MQTTSink) Close() {
	s.client.Disconnect(250)
}
