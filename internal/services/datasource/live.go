// Package datasource chooses between live upstream data and the demo
// fallback.
package datasource

import (
	"context"

	"Jarvis/internal/domain/models"
)

type tokenMarketer interface {
	TokenMarket(ctx context.Context, mint string) (models.TokenMarket, error)
}

type candler interface {
	Candles(ctx context.Context, pool, tf string, n int) ([]models.Candle, error)
}

type sampler interface {
	PriceSample(ctx context.Context, mint string) (models.PriceSample, error)
}

// Source is the uniform shape of the live and demo providers.
type Source interface {
	tokenMarketer
	candler
	sampler
	Sentiment(ctx context.Context, mints []string) ([]models.SentimentSignal, error)
	Graduations(ctx context.Context, limit int) ([]models.Graduation, error)
}

// Live stitches the upstream clients into one Source.
type Live struct {
	Markets     tokenMarketer
	OHLCV       candler
	Prices      sampler
	SentimentFn func(ctx context.Context, mints []string) ([]models.SentimentSignal, error)
	GradFn      func(ctx context.Context, limit int) ([]models.Graduation, error)
	ProbeMint   string
}

func (l *Live) TokenMarket(ctx context.Context, mint string) (models.TokenMarket, error) {
	return l.Markets.TokenMarket(ctx, mint)
}

func (l *Live) Candles(ctx context.Context, pool, tf string, n int) ([]models.Candle, error) {
	return l.OHLCV.Candles(ctx, pool, tf, n)
}

func (l *Live) PriceSample(ctx context.Context, mint string) (models.PriceSample, error) {
	return l.Prices.PriceSample(ctx, mint)
}

func (l *Live) Sentiment(ctx context.Context, mints []string) ([]models.SentimentSignal, error) {
	if l.SentimentFn == nil {
		return nil, errNotConfigured("sentiment")
	}
	return l.SentimentFn(ctx, mints)
}

func (l *Live) Graduations(ctx context.Context, limit int) ([]models.Graduation, error) {
	if l.GradFn == nil {
		return nil, errNotConfigured("graduations")
	}
	return l.GradFn(ctx, limit)
}

// Probe checks that the price oracle answers for the probe mint.
func (l *Live) Probe(ctx context.Context) error {
	_, err := l.Prices.PriceSample(ctx, l.ProbeMint)
	return err
}

type errNotConfigured string

func (e errNotConfigured) Error() string { return string(e) + " source not configured" }
