package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"mekaniku/internal/logger"
)

// Handler processes one message. A returned error is logged and the message
// is skipped.
type Handler func(ctx context.Context, msg kafka.Message) error

type Consumer struct {
	reader *kafka.Reader
	topic  string
	log    *logger.Logger
}

// NewConsumer creates a consumer for the given topic and group
func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader, topic: topic, log: log}
}

// Start reads until ctx is cancelled or the reader is closed.
func (c *Consumer) Start(ctx context.Context, handler Handler) {
	c.log.LogKafka("CONSUME", c.topic, "consumer started")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.log.LogKafka("CONSUME", c.topic, "consumer stopped")
				return
			}
			c.log.Error("KAFKA", fmt.Sprintf("Error reading from %s: %v", c.topic, err))
			continue
		}

		if err := handler(ctx, msg); err != nil {
			c.log.Warn("KAFKA", fmt.Sprintf("Skipping message at offset %d on %s: %v", msg.Offset, c.topic, err))
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
