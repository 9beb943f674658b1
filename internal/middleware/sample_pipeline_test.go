package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"Jarvis/internal/domain/models"
)

type nopMetrics struct{}

func (nopMetrics) RecordMessageSent(string, string) {}
func (nopMetrics) RecordError(string) {}
func (nopMetrics) RecordLatency(string, float64) {}
func (nopMetrics) RecordConsensus(string, string) {}
func (nopMetrics) RecordBacktest(string, float64) {}
func (nopMetrics) RecordGate(string, float64, bool) {}
func (nopMetrics) RecordGateTransition(string, bool) {}
func (nopMetrics) RecordUpstream(string, float64, error) {}

type recorder struct {
	mu   sync.Mutex
	got  []models.PriceSample
	fail int
}

func (r *recorder) Process(_ context.Context, s models.PriceSample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail > 0 {
		r.fail--
		return errors.New("downstream down")
	}
	r.got = append(r.got, s)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

func sample(mint string, at time.Time) models.PriceSample {
	return models.PriceSample{Mint: mint, Price: 1, Confidence: 0.001, Reliable: true, At: at}
}

func TestPipelineRejectsInvalid(t *testing.T) {
	p := NewSamplePipeline(&recorder{}, nopMetrics{})
	for _, s := range []models.PriceSample{
		{Price: 1},
		{Mint: "M", Price: -1},
		{Mint: "M", Price: 1, Confidence: -0.1},
	} {
		if err := p.Process(context.Background(), s); !errors.Is(err, ErrInvalidSample) {
			t.Fatalf("sample %+v: err = %v", s, err)
		}
	}
}

func TestPipelineThrottlesAndOrders(t *testing.T) {
	rec := &recorder{}
	p := NewSamplePipeline(rec, nopMetrics{}, WithMaxRPS(1))
	now := time.Unix(1000, 0)
	p.now = func() time.Time { return now }
	ctx := context.Background()

	if err := p.Process(ctx, sample("M", now)); err != nil {
		t.Fatalf("first: %v", err)
	}
	if err := p.Process(ctx, sample("M", now.Add(time.Millisecond))); err != nil {
		t.Fatalf("throttled sample should not error: %v", err)
	}
	if err := p.Process(ctx, sample("OTHER", now)); err != nil {
		t.Fatalf("other mint: %v", err)
	}
	if rec.count() != 2 {
		t.Fatalf("want 2 forwarded, got %d", rec.count())
	}

	now = now.Add(2 * time.Second)
	if err := p.Process(ctx, sample("M", now.Add(-time.Hour))); !errors.Is(err, ErrStaleSample) {
		t.Fatalf("stale: err = %v", err)
	}
	if err := p.Process(ctx, sample("M", now)); err != nil {
		t.Fatalf("after window: %v", err)
	}
	if rec.count() != 3 {
		t.Fatalf("want 3 forwarded, got %d", rec.count())
	}
}

type countingMetrics struct {
	nopMetrics
	mu     sync.Mutex
	errors map[string]int
}

func (m *countingMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errors == nil {
		m.errors = make(map[string]int)
	}
	m.errors[kind]++
}

func (m *countingMetrics) count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPipelineRetriesBufferedSample(t *testing.T) {
	rec := &recorder{fail: 1}
	p := NewSamplePipeline(rec, nopMetrics{}, WithMaxRPS(1000))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Process(ctx, sample("M", time.Now())); err == nil {
		t.Fatalf("expected downstream error")
	}
	if p.Buffered() != 1 {
		t.Fatalf("buffered = %d", p.Buffered())
	}
	p.Start(ctx)
	defer p.Stop()
	waitFor(t, func() bool { return rec.count() == 1 })
}

func TestPipelineDropsRetryOvertakenByNewerSample(t *testing.T) {
	rec := &recorder{fail: 1}
	m := &countingMetrics{}
	p := NewSamplePipeline(rec, m, WithMaxRPS(1_000_000_000))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t0 := time.Now()
	older := sample("M", t0)
	newer := sample("M", t0.Add(time.Second))
	newer.Confidence = 0.05

	if err := p.Process(ctx, older); err == nil {
		t.Fatal("expected downstream error for the first sample")
	}
	if err := p.Process(ctx, newer); err != nil {
		t.Fatalf("newer sample: %v", err)
	}

	p.Start(ctx)
	defer p.Stop()
	waitFor(t, func() bool { return m.count("pipeline_superseded") == 1 })

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.got) != 1 || !rec.got[0].At.Equal(newer.At) {
		t.Fatalf("downstream saw %+v, want only the newer sample", rec.got)
	}
}

func TestPipelineRejectsFutureStamp(t *testing.T) {
	rec := &recorder{}
	p := NewSamplePipeline(rec, nopMetrics{}, WithMaxRPS(1_000_000_000))
	ctx := context.Background()

	future := sample("M", time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC))
	if err := p.Process(ctx, future); !errors.Is(err, ErrInvalidSample) {
		t.Fatalf("future stamp: err = %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := p.Process(ctx, sample("M", time.Now())); err != nil {
			t.Fatalf("sample %d after rejected future one: %v", i, err)
		}
	}
	if rec.count() != 3 {
		t.Fatalf("forwarded = %d", rec.count())
	}
	// small skew is tolerated
	if err := p.Process(ctx, sample("M", time.Now().Add(time.Second))); err != nil {
		t.Fatalf("skewed sample: %v", err)
	}
}
