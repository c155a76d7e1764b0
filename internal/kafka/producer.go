package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"mekaniku/internal/logger"
)

// Producer writes JSON events to any topic over one shared writer.
type Producer struct {
	Writer *kafka.Writer
	log    *logger.Logger
}

func NewProducer(brokers []string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return &Producer{Writer: writer, log: log}
}

// Publish marshals value and writes it to topic under key.
func (p *Producer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	msgBytes, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}

	err = p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: msgBytes,
	})
	if err != nil {
		return fmt.Errorf("write to %s: %w", topic, err)
	}
	p.log.LogKafka("PUBLISH", topic, fmt.Sprintf("key=%s bytes=%d", key, len(msgBytes)))
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
