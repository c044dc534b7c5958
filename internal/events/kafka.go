package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dspereira/openbook/internal/domain"
)

// KafkaFeed publishes events as JSON messages to a Kafka topic, keyed by
// symbol so each market's events stay ordered within a partition.
type KafkaFeed struct {
	writer *kafka.Writer
}

// NewKafkaFeed creates a KafkaFeed targeting the given brokers and topic.
func NewKafkaFeed(brokers []string, topic string) *KafkaFeed {
	return &KafkaFeed{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 10 * time.Millisecond,
			Async:        true,
		},
	}
}

// Publish marshals each event and writes the batch.
func (f *KafkaFeed) Publish(ctx context.Context, evts ...domain.Event) error {
	msgs := make([]kafka.Message, 0, len(evts))
	for _, e := range evts {
		value, err := json.Marshal(e)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.Symbol),
			Value: value,
		})
	}
	return f.writer.WriteMessages(ctx, msgs...)
}

// Close flushes and closes the underlying writer.
func (f *KafkaFeed) Close() error {
	return f.writer.Close()
}
