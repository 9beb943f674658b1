// Package market holds the upstream market data clients and the live or
// demo data source selection.
package market

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	domrepo "Jarvis/internal/domain/repository"
	"Jarvis/internal/service/ratelimit"
	xhttp "Jarvis/pkg/http"
)

// HTTPServiceBase is shared by every upstream client: base URL, rate
// limiting, metrics and retry of transient failures.
type HTTPServiceBase struct {
	name    string
	baseURL string
	client  *xhttp.Client
	limiter *ratelimit.Limiter
	burst   float64
	rps     float64
	metrics domrepo.Metrics
	headers map[string]string
}

type BaseOption func(*HTTPServiceBase)

func WithLimiter(l *ratelimit.Limiter, burst, rps float64) BaseOption {
	return func(b *HTTPServiceBase) {
		b.limiter, b.burst, b.rps = l, burst, rps
	}
}

func WithMetrics(m domrepo.Metrics) BaseOption {
	return func(b *HTTPServiceBase) { b.metrics = m }
}

func WithHeader(key, value string) BaseOption {
	return func(b *HTTPServiceBase) {
		if value != "" {
			b.headers[key] = value
		}
	}
}

func WithHTTPClient(c *xhttp.Client) BaseOption {
	return func(b *HTTPServiceBase) { b.client = c }
}

func NewHTTPServiceBase(name, baseURL string, timeout time.Duration, opts ...BaseOption) *HTTPServiceBase {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	b := &HTTPServiceBase{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
		headers: map[string]string{},
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Name is the upstream label used in logs and metrics.
func (b *HTTPServiceBase) Name() string { return b.name }

// GetJSON fetches baseURL+path into dest.
func (b *HTTPServiceBase) GetJSON(ctx context.Context, path string, query url.Values, dest interface{}) error {
	return b.do(ctx, path, func() error {
		return b.client.GetJSON(ctx, b.baseURL+path, query, b.headers, dest)
	})
}

// PostJSON posts payload to baseURL+path and decodes into dest.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload, dest interface{}) error {
	return b.do(ctx, path, func() error {
		return b.client.PostJSON(ctx, b.baseURL+path, payload, b.headers, dest)
	})
}

// GetJSONWithRetry retries transient failures with linear backoff.
func (b *HTTPServiceBase) GetJSONWithRetry(ctx context.Context, path string, query url.Values, dest interface{}, attempts int) error {
	var err error
	for i := 1; i <= max(attempts, 1); i++ {
		if err = b.GetJSON(ctx, path, query, dest); err == nil || !Retryable(err) || i == attempts {
			return err
		}
		wait := time.Duration(i) * 100 * time.Millisecond
		var se *xhttp.StatusError
		if errors.As(err, &se) && se.RetryAfter > wait {
			wait = min(se.RetryAfter, 5*time.Second)
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (b *HTTPServiceBase) do(ctx context.Context, path string, call func() error) error {
	if b.baseURL == "" {
		return fmt.Errorf("%s: base url not configured", b.name)
	}
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx, b.name, b.burst, b.rps); err != nil {
			return fmt.Errorf("%s rate limit: %w", b.name, err)
		}
	}
	start := time.Now()
	err := call()
	if b.metrics != nil {
		b.metrics.RecordUpstream(b.name, time.Since(start).Seconds(), err)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", b.name, path, err)
	}
	return nil
}

// Retryable reports whether err is worth another attempt: timeouts, 429
// and 5xx responses.
func Retryable(err error) bool {
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

// NotFound reports an upstream 404.
func NotFound(err error) bool {
	var se *xhttp.StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// flexFloat decodes numbers that upstreams send either as JSON numbers or
// as strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse number %q: %w", s, err)
	}
	*f = flexFloat(v)
	return nil
}
