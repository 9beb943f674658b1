package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Producer writes JSON events. It also serves as the logger collector sink.
type Producer struct {
	w *kafka.Writer
	m *clientMetrics
}

func NewProducer(cfg ProducerConfig) (*Producer, error) {
	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}
	var bal kafka.Balancer = &kafka.LeastBytes{}
	if cfg.HashByKey {
		bal = &kafka.Hash{}
	}
	return &Producer{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               bal,
			RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
			Compression:            compression(cfg.Compression),
			MaxAttempts:            cfg.MaxAttempts,
			BatchSize:              cfg.BatchSize,
			BatchBytes:             int64(cfg.BatchBytes),
			BatchTimeout:           cfg.Linger,
			WriteTimeout:           cfg.WriteTimeout,
			ReadTimeout:            cfg.ReadTimeout,
			Async:                  cfg.Async,
			AllowAutoTopicCreation: true,
		},
		m: kafkaMetrics(),
	}, nil
}

// Publish writes value to topic. Byte slices and strings are sent as is,
// anything else is JSON encoded.
func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value interface{}) error {
	b, err := encode(value)
	if err != nil {
		return err
	}
	start := time.Now()
	err = p.w.WriteMessages(ctx, kafka.Message{Topic: topic, Key: key, Value: b, Time: start})
	p.m.published.WithLabelValues(topic, result(err)).Inc()
	p.m.pubTime.WithLabelValues(topic).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("kafka publish %s: %w", topic, err)
	}
	p.m.pubBytes.WithLabelValues(topic).Add(float64(len(b)))
	return nil
}

// PublishMessage publishes without a key.
func (p *Producer) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.Publish(ctx, topic, nil, payload)
}

func (p *Producer) Close() error { return p.w.Close() }

func encode(v interface{}) ([]byte, error) {
	switch val := v.(type) {
	case []byte:
		return val, nil
	case string:
		return []byte(val), nil
	case json.RawMessage:
		return val, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("kafka encode: %w", err)
	}
	return b, nil
}
