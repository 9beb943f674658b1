package logger

import (
	"context"
	"sync"
	"testing"
	"time"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedLogEntry
	done    chan struct{}
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	select {
	case p.done <- struct{}{}:
	default:
	}
	return nil
}

func TestCollectorDeduplicatesAndFlushesOnThreshold(t *testing.T) {
	pub := &capturePublisher{done: make(chan struct{}, 1)}
	c := NewLogCollector(&CollectionConfig{
		TimeInterval:   time.Hour,
		CountThreshold: 2,
		Topic:          "jarvis.logs.errors",
		Publisher:      pub,
	})
	defer c.Close()

	fields := map[string]interface{}{"mint": "abc"}
	c.AddLog("error", "upstream failed", fields, "market.go:10")
	c.AddLog("error", "upstream failed", fields, "market.go:10")
	c.AddLog("error", "gate tripped", nil, "gate.go:20")

	select {
	case <-pub.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected a flush after reaching the threshold")
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if pub.topic != "jarvis.logs.errors" {
		t.Fatalf("unexpected topic %q", pub.topic)
	}
	batch := pub.batches[0]
	if len(batch) != 2 {
		t.Fatalf("expected 2 unique entries, got %d", len(batch))
	}
	for _, e := range batch {
		if e.Message == "upstream failed" && e.Count != 2 {
			t.Fatalf("expected duplicate count 2, got %d", e.Count)
		}
	}
}

func TestLoggerWithoutCollectorDoesNotPanic(t *testing.T) {
	l := Nop().With(String("component", "test"))
	l.Error("boom", Error(context.Canceled), Float64("ratio", 0.5))
	l.RemoveCollector()
}

func TestEntryKeyIgnoresFieldOrder(t *testing.T) {
	a := entryKey("error", "m", map[string]interface{}{"a": 1, "b": "x"}, "c.go:1")
	b := entryKey("error", "m", map[string]interface{}{"b": "x", "a": 1}, "c.go:1")
	if a != b {
		t.Fatalf("keys differ for the same fields")
	}
	if a == entryKey("error", "m", map[string]interface{}{"a": 2, "b": "x"}, "c.go:1") {
		t.Fatalf("different field values share a key")
	}
}

func TestCloseFlushesPending(t *testing.T) {
	pub := &capturePublisher{done: make(chan struct{}, 1)}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 50, Topic: "t", Publisher: pub})
	c.AddLog("error", "once", nil, "x.go:1")
	c.Close()
	c.Close()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.batches) != 1 || pub.batches[0][0].Message != "once" {
		t.Fatalf("expected the pending entry to ship on close, got %+v", pub.batches)
	}
}

func TestFieldValues(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	cases := []struct {
		f    Field
		key  string
		want interface{}
	}{
		{Duration("elapsed", 1500*time.Millisecond), "elapsed", int64(1500)},
		{Time("at", at), "at", "2024-01-02T03:04:05Z"},
		{Error(nil), "error", ""},
		{Strings("mints", []string{"a", "b"}), "mints", "a,b"},
	}
	for _, c := range cases {
		if c.f.Key != c.key || c.f.Value != c.want {
			t.Fatalf("%s: got %v=%v", c.key, c.f.Key, c.f.Value)
		}
	}
}
