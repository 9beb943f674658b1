package usecase

import (
	"context"

	"github.com/shopspring/decimal"

	"Jarvis/internal/domain/models"
	"Jarvis/internal/services/state"
	"Jarvis/pkg/logger"
)

// StateUseCase marks stored positions to market before returning them.
type StateUseCase struct {
	*state.Store
	market *MarketUseCase
	log    *logger.Logger
}

func NewStateUseCase(st *state.Store, market *MarketUseCase, l *logger.Logger) *StateUseCase {
	return &StateUseCase{Store: st, market: market, log: l}
}

// MarkedPositions returns positions with the current price refreshed from
// live market data. Demo prices are ignored.
func (uc *StateUseCase) MarkedPositions(ctx context.Context) ([]models.Position, error) {
	ps, err := uc.Positions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range ps {
		m, err := uc.market.TokenMarket(ctx, ps[i].Mint)
		if err != nil || m.Demo || m.PriceUSD <= 0 {
			continue
		}
		ps[i].CurrentPrice = decimal.NewFromFloat(m.PriceUSD)
		state.WithPnL(&ps[i])
	}
	return ps, nil
}
