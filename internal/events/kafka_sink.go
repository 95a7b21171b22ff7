package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaSink forwards published events to a Kafka topic, keyed by subject.
type KafkaSink struct {
	writer *kafka.Writer
}

// NewKafkaSink creates a sink. It returns nil when brokers or topic are empty.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Register subscribes the sink to every event type.
func (k *KafkaSink) Register(d Dispatcher) {
	if k == nil || d == nil {
		return
	}
	for _, eventType := range AllEventTypes {
		d.Subscribe(eventType, k.Handle)
	}
}

// Handle writes one event.
func (k *KafkaSink) Handle(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.SubjectID),
		Value: body,
		Time:  event.Timestamp,
	})
}

// Close flushes and closes the writer.
func (k *KafkaSink) Close() error {
	if k == nil {
		return nil
	}
	return k.writer.Close()
}
