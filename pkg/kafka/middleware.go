package kafka

import (
	"context"
	"fmt"
	"time"

	applogger "Jarvis/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// HandleFunc processes one fetched message.
type HandleFunc func(ctx context.Context, msg kafka.Message) error

// Middleware decorates a HandleFunc, e.g. to trace, time or guard it.
type Middleware func(HandleFunc) HandleFunc

// Chain wraps h so that mws[0] runs first.
func Chain(h HandleFunc, mws ...Middleware) HandleFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			h = mws[i](h)
		}
	}
	return h
}

// HandlerError classifies a failure raised around the handler, e.g.
// ERR_PANIC.
type HandlerError struct {
	Code string
	Err  error
}

func (e *HandlerError) Error() string { return e.Code + ": " + e.Err.Error() }
func (e *HandlerError) Unwrap() error { return e.Err }

type traceKey struct{}

// TraceID returns the id put in ctx by Trace, if any.
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}

// Trace copies the trace_id header into the handler context.
func Trace() Middleware {
	return func(next HandleFunc) HandleFunc {
		return func(ctx context.Context, msg kafka.Message) error {
			for _, h := range msg.Headers {
				if h.Key == "trace_id" && len(h.Value) > 0 {
					ctx = context.WithValue(ctx, traceKey{}, string(h.Value))
					break
				}
			}
			return next(ctx, msg)
		}
	}
}

// Recover converts a handler panic into an ERR_PANIC HandlerError so the
// message goes through retry and dead-lettering like any failure.
func Recover() Middleware {
	return func(next HandleFunc) HandleFunc {
		return func(ctx context.Context, msg kafka.Message) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &HandlerError{Code: "ERR_PANIC", Err: fmt.Errorf("%v", r)}
				}
			}()
			return next(ctx, msg)
		}
	}
}

// Logging warns about failed attempts and about messages slower than slow.
func Logging(l *applogger.Logger, slow time.Duration) Middleware {
	if l == nil {
		l = applogger.Nop()
	}
	return func(next HandleFunc) HandleFunc {
		return func(ctx context.Context, msg kafka.Message) error {
			start := time.Now()
			err := next(ctx, msg)
			elapsed := time.Since(start)
			switch {
			case err != nil:
				l.Warn("kafka handler failed",
					applogger.String("topic", msg.Topic),
					applogger.Int64("offset", msg.Offset),
					applogger.String("trace_id", TraceID(ctx)),
					applogger.Error(err))
			case slow > 0 && elapsed > slow:
				l.Warn("slow kafka message",
					applogger.String("topic", msg.Topic),
					applogger.Int64("offset", msg.Offset),
					applogger.Duration("elapsed", elapsed))
			}
			return err
		}
	}
}
