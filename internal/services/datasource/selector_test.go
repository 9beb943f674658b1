package datasource

import (
	"context"
	"errors"
	"testing"

	"Jarvis/internal/domain/models"
)

type stubSource struct {
	err    error
	symbol string
	calls  int
}

func (s *stubSource) TokenMarket(_ context.Context, mint string) (models.TokenMarket, error) {
	s.calls++
	return models.TokenMarket{Mint: mint, Symbol: s.symbol}, s.err
}

func (s *stubSource) Candles(_ context.Context, pool, _ string, n int) ([]models.Candle, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return make([]models.Candle, n), nil
}

func (s *stubSource) PriceSample(_ context.Context, mint string) (models.PriceSample, error) {
	s.calls++
	return models.PriceSample{Mint: mint, Source: models.PriceSource(s.symbol)}, s.err
}

func (s *stubSource) Sentiment(_ context.Context, mints []string) ([]models.SentimentSignal, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []models.SentimentSignal{{Mint: mints[0], Reasoning: s.symbol}}, nil
}

func (s *stubSource) Graduations(_ context.Context, _ int) ([]models.Graduation, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []models.Graduation{{Symbol: s.symbol}}, nil
}

type stubProber struct{ err error }

func (p *stubProber) Probe(context.Context) error { return p.err }

func TestSelectorUsesFallbackUntilProbeSucceeds(t *testing.T) {
	live := &stubSource{symbol: "LIVE"}
	demo := &stubSource{symbol: "DEMO"}
	prober := &stubProber{}
	s := NewSelector(live, prober, demo, false, nil)
	ctx := context.Background()

	m, _ := s.TokenMarket(ctx, "X")
	if m.Symbol != "DEMO" || !m.Demo {
		t.Fatalf("before probe should be demo: %+v", m)
	}

	if err := s.Probe(ctx); err != nil {
		t.Fatalf("probe: %v", err)
	}
	m, _ = s.TokenMarket(ctx, "X")
	if m.Symbol != "LIVE" || m.Demo {
		t.Fatalf("after probe should be live: %+v", m)
	}
	_, demoFlag, _ := s.Candles(ctx, "P", "15m", 3)
	if demoFlag {
		t.Fatalf("live candles flagged demo")
	}
	if !s.Status().Live {
		t.Fatalf("status should be live")
	}

	prober.err = errors.New("down")
	if err := s.Probe(ctx); err == nil {
		t.Fatalf("expected probe error")
	}
	st := s.Status()
	if st.Live || st.LastError != "down" {
		t.Fatalf("status = %+v", st)
	}
	m, _ = s.TokenMarket(ctx, "X")
	if m.Symbol != "DEMO" {
		t.Fatalf("after failed probe should be demo: %+v", m)
	}
}

func TestSelectorDegradesPerCall(t *testing.T) {
	live := &stubSource{symbol: "LIVE", err: errors.New("timeout")}
	demo := &stubSource{symbol: "DEMO"}
	s := NewSelector(live, &stubProber{}, demo, false, nil)
	ctx := context.Background()
	_ = s.Probe(ctx)

	cs, demoFlag, err := s.Candles(ctx, "P", "15m", 4)
	if err != nil || !demoFlag || len(cs) != 4 {
		t.Fatalf("candles = %d demo=%v err=%v", len(cs), demoFlag, err)
	}
	p, err := s.PriceSample(ctx, "M")
	if err != nil || p.Source != "DEMO" {
		t.Fatalf("sample = %+v err=%v", p, err)
	}
	sent, err := s.Sentiment(ctx, []string{"M"})
	if err != nil || sent[0].Reasoning != "DEMO" {
		t.Fatalf("sentiment = %+v err=%v", sent, err)
	}
	gs, err := s.Graduations(ctx, 1)
	if err != nil || gs[0].Symbol != "DEMO" {
		t.Fatalf("graduations = %+v err=%v", gs, err)
	}
	if live.calls != 4 {
		t.Fatalf("live should be tried each call, got %d", live.calls)
	}
}

func TestSelectorForcedDemoNeverCallsLive(t *testing.T) {
	live := &stubSource{symbol: "LIVE"}
	s := NewSelector(live, &stubProber{}, &stubSource{symbol: "DEMO"}, true, nil)
	_ = s.Probe(context.Background())
	m, _ := s.TokenMarket(context.Background(), "X")
	if m.Symbol != "DEMO" || live.calls != 0 {
		t.Fatalf("forced demo used live: %+v calls=%d", m, live.calls)
	}
	if st := s.Status(); !st.Forced || st.Live {
		t.Fatalf("status = %+v", st)
	}
}
