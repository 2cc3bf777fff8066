package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes each message to the topic named by its subject,
// keyed by message id.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func newKafkaPublisher(brokers []string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers not configured")
	}
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, msg Message) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic:   msg.Subject,
		Key:     []byte(msg.ID),
		Value:   msg.Data,
		Headers: []kafka.Header{{Key: "Content-Encoding", Value: []byte(Encoding)}},
	})
	if err != nil {
		return fmt.Errorf("failed to publish to Kafka topic %s: %w", msg.Subject, err)
	}
	return nil
}

func (p *KafkaPublisher) Name() string { return TypeKafka }

func (p *KafkaPublisher) Close() error { return p.writer.Close() }
