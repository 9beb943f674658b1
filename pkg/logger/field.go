package logger

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Field is one structured key/value pair. Value is what the collector sees;
// apply writes the typed form to a zerolog event.
type Field struct {
	Key   string
	Value interface{}
	apply func(*zerolog.Event)
}

func String(key, v string) Field {
	return Field{Key: key, Value: v, apply: func(e *zerolog.Event) { e.Str(key, v) }}
}

func Strings(key string, v []string) Field {
	return Field{Key: key, Value: strings.Join(v, ","), apply: func(e *zerolog.Event) { e.Strs(key, v) }}
}

func Int(key string, v int) Field {
	return Field{Key: key, Value: v, apply: func(e *zerolog.Event) { e.Int(key, v) }}
}

func Int64(key string, v int64) Field {
	return Field{Key: key, Value: v, apply: func(e *zerolog.Event) { e.Int64(key, v) }}
}

func Float64(key string, v float64) Field {
	return Field{Key: key, Value: v, apply: func(e *zerolog.Event) { e.Float64(key, v) }}
}

func Bool(key string, v bool) Field {
	return Field{Key: key, Value: v, apply: func(e *zerolog.Event) { e.Bool(key, v) }}
}

// Duration is logged in milliseconds under key.
func Duration(key string, v time.Duration) Field {
	ms := v.Milliseconds()
	return Field{Key: key, Value: ms, apply: func(e *zerolog.Event) { e.Int64(key, ms) }}
}

func Time(key string, v time.Time) Field {
	return Field{Key: key, Value: v.UTC().Format(time.RFC3339), apply: func(e *zerolog.Event) { e.Time(key, v) }}
}

func Error(err error) Field {
	var msg string
	if err != nil {
		msg = err.Error()
	}
	return Field{Key: zerolog.ErrorFieldName, Value: msg, apply: func(e *zerolog.Event) { e.Err(err) }}
}

func Any(key string, v interface{}) Field {
	return Field{Key: key, Value: v, apply: func(e *zerolog.Event) { e.Interface(key, v) }}
}
