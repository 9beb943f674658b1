package datasource

import (
	"context"
	"sync"
	"time"

	"Jarvis/internal/domain/models"
	"Jarvis/pkg/logger"
	"Jarvis/pkg/scheduler"
)

// Prober reports whether live data is reachable.
type Prober interface {
	Probe(ctx context.Context) error
}

// Selector serves live data while the last probe succeeded and the demo
// source otherwise. A failing live call degrades to demo data for that
// call only.
type Selector struct {
	live     Source
	prober   Prober
	fallback Source
	forced   bool
	log      *logger.Logger

	mu        sync.RWMutex
	available bool
	lastProbe time.Time
	lastErr   error
}

// Status is the selector's view of the live source.
type Status struct {
	Live      bool      `json:"live"`
	Forced    bool      `json:"demo_forced"`
	LastProbe time.Time `json:"last_probe"`
	LastError string    `json:"last_error,omitempty"`
}

// NewSelector builds a selector. forceDemo pins it to the fallback.
func NewSelector(live Source, prober Prober, fallback Source, forceDemo bool, l *logger.Logger) *Selector {
	if l == nil {
		l = logger.Nop()
	}
	return &Selector{live: live, prober: prober, fallback: fallback, forced: forceDemo || live == nil, log: l}
}

// Probe runs the capability check and flips the selection.
func (s *Selector) Probe(ctx context.Context) error {
	if s.forced || s.prober == nil {
		return nil
	}
	err := s.prober.Probe(ctx)
	s.mu.Lock()
	prev := s.available
	s.available = err == nil
	s.lastProbe = time.Now().UTC()
	s.lastErr = err
	s.mu.Unlock()

	if prev != (err == nil) {
		if err != nil {
			s.log.Warn("live market data unavailable, serving demo data", logger.Error(err))
		} else {
			s.log.Info("live market data available")
		}
	}
	return err
}

// ProbeTask adapts Probe to the scheduler.
func (s *Selector) ProbeTask(ctx context.Context, _ scheduler.Run) error {
	return s.Probe(ctx)
}

func (s *Selector) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Status{Live: s.useLive(), Forced: s.forced, LastProbe: s.lastProbe}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

func (s *Selector) useLive() bool { return !s.forced && s.available }

func (s *Selector) isLive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.useLive()
}

func (s *Selector) degrade(op string, err error) {
	s.log.Warn("live call failed, using demo data", logger.String("op", op), logger.Error(err))
}

func (s *Selector) TokenMarket(ctx context.Context, mint string) (models.TokenMarket, error) {
	if s.isLive() {
		m, err := s.live.TokenMarket(ctx, mint)
		if err == nil {
			return m, nil
		}
		s.degrade("token_market", err)
	}
	m, err := s.fallback.TokenMarket(ctx, mint)
	m.Demo = true
	return m, err
}

// Candles reports demo=true when the candles did not come from upstream.
func (s *Selector) Candles(ctx context.Context, pool, tf string, n int) ([]models.Candle, bool, error) {
	if s.isLive() {
		c, err := s.live.Candles(ctx, pool, tf, n)
		if err == nil {
			return c, false, nil
		}
		s.degrade("candles", err)
	}
	c, err := s.fallback.Candles(ctx, pool, tf, n)
	return c, true, err
}

func (s *Selector) PriceSample(ctx context.Context, mint string) (models.PriceSample, error) {
	if s.isLive() {
		p, err := s.live.PriceSample(ctx, mint)
		if err == nil {
			return p, nil
		}
		s.degrade("price_sample", err)
	}
	return s.fallback.PriceSample(ctx, mint)
}

func (s *Selector) Sentiment(ctx context.Context, mints []string) ([]models.SentimentSignal, error) {
	if s.isLive() {
		out, err := s.live.Sentiment(ctx, mints)
		if err == nil {
			return out, nil
		}
		s.degrade("sentiment", err)
	}
	return s.fallback.Sentiment(ctx, mints)
}

func (s *Selector) Graduations(ctx context.Context, limit int) ([]models.Graduation, error) {
	if s.isLive() {
		out, err := s.live.Graduations(ctx, limit)
		if err == nil {
			return out, nil
		}
		s.degrade("graduations", err)
	}
	return s.fallback.Graduations(ctx, limit)
}
