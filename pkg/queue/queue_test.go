package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"Jarvis/pkg/logger"
)

func TestConfigNormalizeAndBackoff(t *testing.T) {
	c := Config{RetryLimit: -1}
	c.normalize()
	if c.Workers != 1 || c.RetryLimit != 0 || c.RetryDelay != 10*time.Second || c.PollTimeout != time.Second {
		t.Fatalf("unexpected defaults %+v", c)
	}
	now := time.Unix(1000, 0)
	if got := c.retryAt(now, 3); !got.Equal(now.Add(30 * time.Second)) {
		t.Fatalf("retryAt = %v", got)
	}
}

func TestMessageEnvelope(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m, err := newMessage("id-1", "backtest.run", map[string]interface{}{"pool": "P"}, now)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := json.Marshal(m)
	got, err := decodeMessage(string(b))
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "id-1" || got.Type != "backtest.run" || string(got.Payload) != `{"pool":"P"}` {
		t.Fatalf("round trip lost data: %+v", got)
	}

	raw := json.RawMessage(`{"n":1}`)
	m, _ = newMessage("id-2", "t", raw, now)
	if string(m.Payload) != `{"n":1}` {
		t.Fatalf("raw payload re-encoded: %s", m.Payload)
	}

	if _, err := decodeMessage(`{"id":"x"}`); err == nil {
		t.Fatalf("expected error for message without type")
	}
	if _, err := decodeMessage(`not json`); err == nil {
		t.Fatalf("expected error for malformed message")
	}
}

func TestEnqueueRequiresRunningQueueAndKnownType(t *testing.T) {
	q := NewRedisQueue(logger.Nop(), Config{}, nil, WithKeyPrefix("test:q"))
	if q.pendingKey() != "test:q:pending" || q.retryKey() != "test:q:retry" || q.deadKey() != "test:q:dead" {
		t.Fatalf("unexpected keys")
	}
	job := JobFunc{Kind: "k", Fn: func(context.Context, json.RawMessage) error { return nil }}
	q.RegisterJob(job)
	q.RegisterJob(job)
	if len(q.jobs) != 1 {
		t.Fatalf("duplicate registration kept")
	}
	if err := q.Enqueue(context.Background(), "k", nil); err == nil {
		t.Fatalf("expected error when queue is not running")
	}
	q.running = true
	if err := q.Enqueue(context.Background(), "other", nil); err == nil {
		t.Fatalf("expected error for unregistered type")
	}
}
