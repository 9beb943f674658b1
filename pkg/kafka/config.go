package kafka

import (
	"fmt"
	"time"

	applogger "Jarvis/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// ProducerConfig configures the event writer. Zero fields take defaults.
type ProducerConfig struct {
	Brokers      []string
	RequiredAcks int // -1 waits for all in-sync replicas
	Compression  string
	MaxAttempts  int
	BatchSize    int
	BatchBytes   int
	Linger       time.Duration
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	Async        bool
	// HashByKey keeps every message of one key (a mint or pool) on one
	// partition.
	HashByKey bool
}

func (c *ProducerConfig) setDefaults() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka: brokers are required")
	}
	if c.Compression == "" {
		c.Compression = "snappy"
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.BatchBytes <= 0 {
		c.BatchBytes = 1 << 20
	}
	if c.Linger <= 0 {
		c.Linger = 50 * time.Millisecond
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	return nil
}

// ConsumerConfig configures the group reader and its worker pool.
type ConsumerConfig struct {
	Brokers    []string
	GroupID    string
	Workers    int
	BufferSize int // per worker
	RetryMax   int
	BackoffMin time.Duration
	BackoffMax time.Duration
	// DLQTopic receives messages that still fail after RetryMax retries.
	// Without it such messages are committed and dropped.
	DLQTopic string
	MinBytes int
	MaxBytes int
	Logger   *applogger.Logger
}

func (c *ConsumerConfig) setDefaults() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka: brokers are required")
	}
	if c.GroupID == "" {
		return fmt.Errorf("kafka: group id is required")
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.BufferSize <= 0 {
		c.BufferSize = 64
	}
	if c.RetryMax < 0 {
		c.RetryMax = 0
	}
	if c.BackoffMin <= 0 {
		c.BackoffMin = 50 * time.Millisecond
	}
	if c.BackoffMax < c.BackoffMin {
		c.BackoffMax = c.BackoffMin
	}
	if c.MinBytes <= 0 {
		c.MinBytes = 1
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10e6
	}
	if c.Logger == nil {
		c.Logger = applogger.Nop()
	}
	return nil
}

func compression(name string) kafka.Compression {
	switch name {
	case "gzip":
		return kafka.Gzip
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Snappy
	}
}
