package usecase

import (
	"context"
	"fmt"

	"Jarvis/internal/domain/models"
	domrepo "Jarvis/internal/domain/repository"
)

// CandlesUseCase serves candles captured from live fetches.
type CandlesUseCase struct {
	store domrepo.CandleStore
}

func NewCandlesUseCase(store domrepo.CandleStore) *CandlesUseCase {
	return &CandlesUseCase{store: store}
}

type GetCandlesParams struct {
	Pool      string
	Timeframe domrepo.Timeframe
	Limit     int
}

type GetCandlesResult struct {
	Pool      string          `json:"pool"`
	Timeframe string          `json:"timeframe"`
	Count     int             `json:"count"`
	Candles   []models.Candle `json:"candles"`
}

func (uc *CandlesUseCase) GetCandles(ctx context.Context, p GetCandlesParams) (*GetCandlesResult, error) {
	if p.Pool == "" {
		return nil, fmt.Errorf("pool required")
	}
	if !domrepo.IsValidTimeframe(p.Timeframe) {
		return nil, fmt.Errorf("unsupported timeframe %q", p.Timeframe)
	}
	if p.Limit <= 0 {
		p.Limit = 200
	}
	if p.Limit > 5000 {
		p.Limit = 5000
	}

	candles, err := uc.store.GetLatestNCandles(ctx, p.Pool, p.Limit, p.Timeframe)
	if err != nil {
		return nil, fmt.Errorf("get candles: %w", err)
	}
	if candles == nil {
		candles = []models.Candle{}
	}
	return &GetCandlesResult{
		Pool:      p.Pool,
		Timeframe: string(p.Timeframe),
		Count:     len(candles),
		Candles:   candles,
	}, nil
}
