package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

func TestChainOrderAndTrace(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next HandleFunc) HandleFunc {
			return func(ctx context.Context, msg kafka.Message) error {
				order = append(order, name)
				return next(ctx, msg)
			}
		}
	}
	var seen string
	h := Chain(func(ctx context.Context, _ kafka.Message) error {
		seen = TraceID(ctx)
		return nil
	}, tag("outer"), nil, Trace(), tag("inner"))

	msg := kafka.Message{Headers: []kafka.Header{{Key: "trace_id", Value: []byte("t-1")}}}
	if err := h(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Fatalf("order = %v", order)
	}
	if seen != "t-1" {
		t.Fatalf("trace id = %q", seen)
	}
}

func TestRecoverTurnsPanicIntoError(t *testing.T) {
	h := Chain(func(context.Context, kafka.Message) error { panic("boom") }, Recover())
	err := h(context.Background(), kafka.Message{})
	var he *HandlerError
	if !errors.As(err, &he) || he.Code != "ERR_PANIC" {
		t.Fatalf("expected ERR_PANIC, got %v", err)
	}
}

func TestLoggingPassesErrorThrough(t *testing.T) {
	want := errors.New("bad payload")
	h := Chain(func(context.Context, kafka.Message) error { return want }, Logging(nil, time.Second))
	if err := h(context.Background(), kafka.Message{Topic: "samples"}); !errors.Is(err, want) {
		t.Fatalf("got %v", err)
	}
}

func TestBackoffWithJitterIsBounded(t *testing.T) {
	for attempt := 1; attempt <= 8; attempt++ {
		d := backoffWithJitter(50*time.Millisecond, 400*time.Millisecond, attempt)
		if d <= 0 || d > 400*time.Millisecond {
			t.Fatalf("attempt %d: backoff %v out of range", attempt, d)
		}
	}
}
