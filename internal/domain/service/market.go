package service

import (
	"context"

	"Jarvis/internal/domain/models"
)

// MarketData is the price and candle source used by the strategy and gate
// pipelines. Implementations may serve demo data, flagged with Demo.
type MarketData interface {
	TokenMarket(ctx context.Context, mint string) (models.TokenMarket, error)
	Candles(ctx context.Context, pool, tf string, n int) ([]models.Candle, bool, error)
	PriceSample(ctx context.Context, mint string) (models.PriceSample, error)
}

type SentimentSource interface {
	Sentiment(ctx context.Context, mints []string) ([]models.SentimentSignal, error)
}

type GraduationFeed interface {
	Graduations(ctx context.Context, limit int) ([]models.Graduation, error)
}

type QuoteProvider interface {
	Quote(ctx context.Context, req models.QuoteRequest) (models.Quote, error)
}

// SwapExecutor submits a transaction that the client already signed.
type SwapExecutor interface {
	Submit(ctx context.Context, signedTx string, useJito bool) (models.SubmitResult, error)
}

type Notifier interface {
	Notify(ctx context.Context, text string) error
}
