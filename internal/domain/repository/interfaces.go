package repository

import (
	"context"

	"Jarvis/internal/domain/models"
)

// CandleStore persists fetched candles for replay and offline backtests.
type CandleStore interface {
	SaveCandles(ctx context.Context, pool string, tf Timeframe, candles []models.Candle) error
	GetLatestNCandles(ctx context.Context, pool string, n int, tf Timeframe) ([]models.Candle, error)
}

// BacktestStore keeps finished backtests.
type BacktestStore interface {
	SaveBacktest(ctx context.Context, rec models.BacktestRecord) error
	ListBacktests(ctx context.Context, pool string, limit int) ([]models.BacktestRecord, error)
}

// EventPublisher fans domain events out to the message bus.
type EventPublisher interface {
	PublishConsensus(ctx context.Context, res models.AggregateResult) error
	PublishConfidence(ctx context.Context, st models.ConfidenceState) error
	Close() error
}

type Metrics interface {
	RecordMessageSent(backend, topic string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordConsensus(pool, signal string)
	RecordBacktest(strategy string, seconds float64)
	RecordGate(mint string, ratio float64, tripped bool)
	RecordGateTransition(mint string, tripped bool)
	RecordUpstream(source string, seconds float64, err error)
}
