package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/contracts"
)

// KafkaPublisher writes event envelopes to the platform's streams. One writer
// serves the domain, analytics, and DLQ topics; messages are keyed by the
// envelope partition key so per-vault ordering survives repartitioning.
type KafkaPublisher struct {
	writer         *kafka.Writer
	domainTopic    string
	analyticsTopic string
	dlqTopic       string
}

func NewKafkaPublisher(brokers []string, domainTopic, analyticsTopic, dlqTopic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
		},
		domainTopic:    domainTopic,
		analyticsTopic: analyticsTopic,
		dlqTopic:       dlqTopic,
	}, nil
}

func (p *KafkaPublisher) publish(ctx context.Context, topic, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  time.Now().UTC(),
	})
}

func (p *KafkaPublisher) PublishDomain(ctx context.Context, envelope contracts.EventEnvelope) error {
	return p.publish(ctx, p.domainTopic, envelope.PartitionKey, envelope)
}

func (p *KafkaPublisher) PublishAnalytics(ctx context.Context, envelope contracts.EventEnvelope) error {
	return p.publish(ctx, p.analyticsTopic, envelope.PartitionKey, envelope)
}

func (p *KafkaPublisher) PublishDLQ(ctx context.Context, record contracts.DLQRecord) error {
	return p.publish(ctx, p.dlqTopic, record.OriginalEvent.PartitionKey, record)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
