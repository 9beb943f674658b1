// Package queue is a small Redis-backed work queue with delayed retries and
// a dead-letter list. Jarvis uses it to run backtests outside the request.
package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Config sizes the worker pool and the retry policy.
type Config struct {
	Workers    int
	RetryLimit int
	// RetryDelay is multiplied by the attempt number.
	RetryDelay time.Duration
	// PollTimeout bounds one blocking pop so workers notice Stop.
	PollTimeout time.Duration
}

func (c *Config) normalize() {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.RetryLimit < 0 {
		c.RetryLimit = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 10 * time.Second
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = time.Second
	}
}

// retryAt is when a message that failed attempt number attempts runs again.
func (c Config) retryAt(now time.Time, attempts int) time.Time {
	return now.Add(time.Duration(attempts) * c.RetryDelay)
}

// Message is the envelope stored in Redis.
type Message struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	LastError  string          `json:"last_error,omitempty"`
}

func newMessage(id, msgType string, payload interface{}, now time.Time) (Message, error) {
	raw, ok := payload.(json.RawMessage)
	if !ok {
		b, err := json.Marshal(payload)
		if err != nil {
			return Message{}, fmt.Errorf("marshal payload: %w", err)
		}
		raw = b
	}
	return Message{ID: id, Type: msgType, Payload: raw, EnqueuedAt: now.UTC()}, nil
}

func decodeMessage(data string) (Message, error) {
	var m Message
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return m, fmt.Errorf("decode message: %w", err)
	}
	if m.Type == "" {
		return m, fmt.Errorf("decode message: missing type")
	}
	return m, nil
}

// Stats is a point-in-time view of the queue.
type Stats struct {
	Pending  int64 `json:"pending"`
	Retrying int64 `json:"retrying"`
	Dead     int64 `json:"dead"`
}
