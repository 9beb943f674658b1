package queue

import (
	"context"
	"encoding/json"
)

// Job handles every message of one type. Payload is the raw JSON that was
// enqueued; the job decodes it into its own type.
type Job interface {
	Type() string
	Handle(ctx context.Context, payload json.RawMessage) error
}

// JobFunc adapts a function to Job.
type JobFunc struct {
	Kind string
	Fn   func(ctx context.Context, payload json.RawMessage) error
}

func (j JobFunc) Type() string { return j.Kind }

func (j JobFunc) Handle(ctx context.Context, payload json.RawMessage) error {
	return j.Fn(ctx, payload)
}
