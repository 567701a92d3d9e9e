package infrastructure

import (
	"context"
	"encoding/json"

	"github.com/draftea/checkout-system/shared/events"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

var _ events.Publisher = (*KafkaEventPublisher)(nil)

// KafkaWriter is the subset of *kafka.Writer used by the publisher
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEventPublisher publishes events to a single Kafka topic keyed by
// aggregate id, so all events of one order land on the same partition.
type KafkaEventPublisher struct {
	writer KafkaWriter
}

// NewKafkaEventPublisher creates a publisher over the given writer
func NewKafkaEventPublisher(writer KafkaWriter) *KafkaEventPublisher {
	return &KafkaEventPublisher{writer: writer}
}

// NewKafkaWriter builds a synchronous writer that waits for all replicas
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
}

// Publish writes all events in one call
func (p *KafkaEventPublisher) Publish(ctx context.Context, evts ...*events.Event) error {
	if len(evts) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(evts))
	for _, event := range evts {
		value, err := json.Marshal(event)
		if err != nil {
			return errors.Wrapf(err, "failed to marshal event %s", event.ID)
		}

		headers := []kafka.Header{
			{Key: "event", Value: []byte(event.EventType)},
			{Key: "version", Value: []byte(event.Version)},
		}
		if !event.TenantID.IsEmpty() {
			headers = append(headers, kafka.Header{Key: "tenant_id", Value: []byte(event.TenantID.String())})
		}

		msgs = append(msgs, kafka.Message{
			Key:     []byte(event.AggregateID.String()),
			Value:   value,
			Time:    event.Timestamp,
			Headers: headers,
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return errors.Wrap(err, "failed to write messages to kafka")
	}

	return nil
}

// Close flushes and closes the underlying writer
func (p *KafkaEventPublisher) Close() error {
	return p.writer.Close()
}
