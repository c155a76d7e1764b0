package notification

import (
	"context"
	"encoding/json"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"

	"mekaniku/internal/kafka"
	"mekaniku/internal/models"
	"mekaniku/internal/sse"
)

// Publisher hands a committed notification to the real-time delivery stream.
type Publisher interface {
	Publish(ctx context.Context, n models.Notification) error
}

// BrokerPublisher delivers straight to the in-process SSE broker.
type BrokerPublisher struct {
	Broker *sse.NotificationBroker
}

func (p *BrokerPublisher) Publish(_ context.Context, n models.Notification) error {
	p.Broker.Publish(n)
	return nil
}

// EventWriter is the subset of the Kafka producer used by publishers.
type EventWriter interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// KafkaPublisher writes notifications to a topic keyed by recipient, so every
// API instance can relay them to its own SSE clients.
type KafkaPublisher struct {
	Writer EventWriter
	Topic  string
}

func (p *KafkaPublisher) Publish(ctx context.Context, n models.Notification) error {
	return p.Writer.Publish(ctx, p.Topic, n.ToUserID, n)
}

// RelayHandler decodes notifications from the topic into the broker.
func RelayHandler(broker *sse.NotificationBroker) kafka.Handler {
	return func(_ context.Context, msg kafkago.Message) error {
		var n models.Notification
		if err := json.Unmarshal(msg.Value, &n); err != nil {
			return fmt.Errorf("decode notification: %w", err)
		}
		if n.ToUserID == "" {
			return fmt.Errorf("notification %s has no recipient", n.ID)
		}
		broker.Publish(n)
		return nil
	}
}
