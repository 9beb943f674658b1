package repository

import (
	"context"

	"Jarvis/internal/domain/models"
	domrepo "Jarvis/internal/domain/repository"
)

// Producer is the part of the Kafka producer the publisher uses.
type Producer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaEventPublisher writes consensus and gate events keyed by pool or
// mint so each key stays ordered within its partition.
type KafkaEventPublisher struct {
	p               Producer
	metrics         domrepo.Metrics
	signalsTopic    string
	confidenceTopic string
}

func NewKafkaEventPublisher(p Producer, metrics domrepo.Metrics, signalsTopic, confidenceTopic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{p: p, metrics: metrics, signalsTopic: signalsTopic, confidenceTopic: confidenceTopic}
}

func (k *KafkaEventPublisher) PublishConsensus(ctx context.Context, res models.AggregateResult) error {
	return k.publish(ctx, k.signalsTopic, res.Pool, res)
}

func (k *KafkaEventPublisher) PublishConfidence(ctx context.Context, st models.ConfidenceState) error {
	return k.publish(ctx, k.confidenceTopic, st.Mint, st)
}

func (k *KafkaEventPublisher) publish(ctx context.Context, topic, key string, v interface{}) error {
	if err := k.p.Publish(ctx, topic, []byte(key), v); err != nil {
		k.metrics.RecordError("kafka_publish")
		return err
	}
	k.metrics.RecordMessageSent("kafka", topic)
	return nil
}

func (k *KafkaEventPublisher) Close() error { return k.p.Close() }

// NopPublisher drops events. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishConsensus(context.Context, models.AggregateResult) error { return nil }
func (NopPublisher) PublishConfidence(context.Context, models.ConfidenceState) error { return nil }
func (NopPublisher) Close() error { return nil }

var (
	_ domrepo.EventPublisher = (*KafkaEventPublisher)(nil)
	_ domrepo.EventPublisher = NopPublisher{}
)
