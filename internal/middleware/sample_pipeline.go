package middleware

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"Jarvis/internal/domain/models"
	domrepo "Jarvis/internal/domain/repository"
)

// Proc is the downstream the pipeline feeds.
type Proc interface {
	Process(ctx context.Context, s models.PriceSample) error
}

// ProcFunc adapts a function to Proc.
type ProcFunc func(ctx context.Context, s models.PriceSample) error

func (f ProcFunc) Process(ctx context.Context, s models.PriceSample) error { return f(ctx, s) }

var (
	ErrInvalidSample = errors.New("invalid price sample")
	ErrStaleSample   = errors.New("stale price sample")
)

// maxClockSkew bounds how far ahead of the local clock a sample may be
// stamped. Ordering is keyed on the stamp, so one far-future sample would
// otherwise make every later one stale.
const maxClockSkew = 5 * time.Second

// SamplePipeline sits between a sample source (Kafka, HTTP, poller) and the
// gate. It validates, drops out-of-order samples, throttles per mint and
// buffers when the downstream fails.
type SamplePipeline struct {
	proc    Proc
	metrics domrepo.Metrics
	maxRPS  int
	bufSize int
	bufCh   chan models.PriceSample
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	mu      sync.Mutex
	last    map[string]time.Time
	latest  map[string]time.Time
	// Downstream calls for one mint are serialized so that a slow or retried
	// sample never lands after a newer one.
	mintMu  sync.Map
	now     func() time.Time
}

type PipelineOption func(*SamplePipeline)

// WithMaxRPS caps accepted samples per second per mint.
func WithMaxRPS(n int) PipelineOption {
	return func(p *SamplePipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the retry buffer used while downstream is failing.
func WithBufferSize(n int) PipelineOption {
	return func(p *SamplePipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

func NewSamplePipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *SamplePipeline {
	p := &SamplePipeline{
		proc:    proc,
		metrics: metrics,
		maxRPS:  10,
		bufSize: 256,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
		last:    make(map[string]time.Time),
		latest:  make(map[string]time.Time),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan models.PriceSample, p.bufSize)
	return p
}

// Start launches the background retry of buffered samples.
func (p *SamplePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		defer close(p.doneCh)
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			case s := <-p.bufCh:
				err := p.forward(ctx, s)
				if errors.Is(err, ErrStaleSample) {
					p.metrics.RecordError("pipeline_superseded")
					continue
				}
				if err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					select {
					case <-time.After(backoff):
					case <-p.stopCh:
						return
					case <-ctx.Done():
						return
					}
					p.enqueue(s)
					continue
				}
				backoff = 50 * time.Millisecond
			}
		}
	}()
}

// Stop ends the retry loop and waits for it.
func (p *SamplePipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
	<-p.doneCh
}

// Process validates, orders and throttles s, then forwards it. Throttled
// samples are dropped without error; an older sample reports ErrStaleSample.
func (p *SamplePipeline) Process(ctx context.Context, s models.PriceSample) error {
	start := p.now()
	if err := validateSample(s); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if s.At.IsZero() {
		s.At = start.UTC()
	}
	if s.At.After(start.Add(maxClockSkew)) {
		p.metrics.RecordError("pipeline_validate")
		return fmt.Errorf("%w: stamped %s, ahead of local clock", ErrInvalidSample, s.At.Format(time.RFC3339))
	}
	stale, allowed := p.admit(s.Mint, s.At, start)
	if stale {
		p.metrics.RecordError("pipeline_stale")
		return ErrStaleSample
	}
	if !allowed {
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	err := p.forward(ctx, s)
	switch {
	case errors.Is(err, ErrStaleSample):
		p.metrics.RecordError("pipeline_stale")
		return err
	case err != nil:
		p.metrics.RecordError("pipeline_process")
		p.enqueue(s)
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

// forward hands s downstream unless a newer sample for the mint has been
// admitted since.
func (p *SamplePipeline) forward(ctx context.Context, s models.PriceSample) error {
	l, _ := p.mintMu.LoadOrStore(s.Mint, &sync.Mutex{})
	mu := l.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()
	if p.superseded(s) {
		return ErrStaleSample
	}
	return p.proc.Process(ctx, s)
}

func (p *SamplePipeline) superseded(s models.PriceSample) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	latest, ok := p.latest[s.Mint]
	return ok && latest.After(s.At)
}

func (p *SamplePipeline) enqueue(s models.PriceSample) {
	select {
	case p.bufCh <- s:
		p.metrics.RecordLatency("pipeline_buffer_depth", float64(len(p.bufCh)))
	default:
		p.metrics.RecordError("pipeline_buffer_full")
	}
}

// Buffered reports how many samples wait for retry.
func (p *SamplePipeline) Buffered() int { return len(p.bufCh) }

func validateSample(s models.PriceSample) error {
	switch {
	case s.Mint == "":
		return fmt.Errorf("%w: mint empty", ErrInvalidSample)
	case s.Price < 0 || s.Confidence < 0:
		return fmt.Errorf("%w: negative price or confidence", ErrInvalidSample)
	case math.IsInf(s.Price, 0) || math.IsInf(s.Confidence, 0):
		return fmt.Errorf("%w: infinite value", ErrInvalidSample)
	}
	return nil
}

// admit rejects samples older than the newest accepted one for the mint and
// enforces the per-mint rate.
func (p *SamplePipeline) admit(mint string, at, now time.Time) (stale, allowed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if prev, ok := p.latest[mint]; ok && at.Before(prev) {
		return true, false
	}
	if p.maxRPS > 0 {
		if last, ok := p.last[mint]; ok && now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
			return false, false
		}
	}
	p.last[mint] = now
	p.latest[mint] = at
	return false, true
}
