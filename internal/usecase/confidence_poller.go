package usecase

import (
	"context"

	domrepo "Jarvis/internal/domain/repository"
	domsvc "Jarvis/internal/domain/service"
	"Jarvis/internal/middleware"
	"Jarvis/pkg/logger"
	"Jarvis/pkg/scheduler"
)

// ConfidencePoller pulls oracle samples for the watched mints and pushes
// them through the sample pipeline.
type ConfidencePoller struct {
	market  domsvc.MarketData
	ingest  middleware.Proc
	metrics domrepo.Metrics
	log     *logger.Logger
	mints   []string
}

func NewConfidencePoller(market domsvc.MarketData, ingest middleware.Proc, metrics domrepo.Metrics, l *logger.Logger, mints []string) *ConfidencePoller {
	return &ConfidencePoller{market: market, ingest: ingest, metrics: metrics, log: l, mints: mints}
}

func (p *ConfidencePoller) Mints() []string { return p.mints }

// PollTask is scheduled at the gate poll interval.
func (p *ConfidencePoller) PollTask(ctx context.Context, _ scheduler.Run) error {
	var firstErr error
	for _, mint := range p.mints {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s, err := p.market.PriceSample(ctx, mint)
		if err != nil {
			p.metrics.RecordError("price_sample")
			p.log.Warn("price sample failed", logger.String("mint", mint), logger.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := p.ingest.Process(ctx, s); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
