package usecase

import (
	"context"
	"fmt"
	"time"

	"Jarvis/internal/domain/models"
	domrepo "Jarvis/internal/domain/repository"
	domsvc "Jarvis/internal/domain/service"
	"Jarvis/internal/services/strategy"
	"Jarvis/pkg/logger"
	"Jarvis/pkg/scheduler"
	"Jarvis/pkg/ws"
)

// Broadcaster pushes events to connected terminals.
type Broadcaster interface {
	Broadcast(msg ws.Message)
}

const (
	EventConsensus  = "consensus"
	EventConfidence = "confidence"
	EventTrip       = "gate_transition"
	EventGraduation = "graduations"
	EventSentiment  = "sentiment"
)

// StrategyUseCase fetches candles, runs the aggregator and fans the result
// out to storage, the bus and websocket clients.
type StrategyUseCase struct {
	market  domsvc.MarketData
	agg     *strategy.Aggregator
	candles domrepo.CandleStore
	pub     domrepo.EventPublisher
	hub     Broadcaster
	metrics domrepo.Metrics
	log     *logger.Logger

	pools []string
	tf    string
	n     int
	guard *scheduler.Guard
}

type StrategyConfig struct {
	Pools     []string
	Timeframe string
	Candles   int
}

func NewStrategyUseCase(
	market domsvc.MarketData,
	agg *strategy.Aggregator,
	candles domrepo.CandleStore,
	pub domrepo.EventPublisher,
	hub Broadcaster,
	metrics domrepo.Metrics,
	l *logger.Logger,
	cfg StrategyConfig,
) *StrategyUseCase {
	uc := &StrategyUseCase{
		market:  market,
		agg:     agg,
		candles: candles,
		pub:     pub,
		hub:     hub,
		metrics: metrics,
		log:     l,
		pools:   cfg.Pools,
		tf:      cfg.Timeframe,
		n:       cfg.Candles,
		guard:   &scheduler.Guard{},
	}
	if uc.tf == "" {
		uc.tf = string(domrepo.DefaultTimeframe())
	}
	if uc.n <= 0 {
		uc.n = 200
	}
	return uc
}

// Follow sets the pool the refresh task tracks in addition to the
// configured ones. Results for a pool that was replaced mid-fetch are
// dropped.
func (uc *StrategyUseCase) Follow(pool string) { uc.guard.Set(pool) }

// Candles returns n candles for pool. Demo candles are replaced by stored
// history when the store has enough of it.
func (uc *StrategyUseCase) Candles(ctx context.Context, pool, tf string, n int) ([]models.Candle, bool, error) {
	cs, demo, err := uc.market.Candles(ctx, pool, tf, n)
	if err != nil {
		return nil, false, fmt.Errorf("fetch candles: %w", err)
	}
	if !demo {
		if uc.candles != nil && len(cs) > 0 {
			if err := uc.candles.SaveCandles(ctx, pool, domrepo.Timeframe(tf), cs); err != nil {
				uc.metrics.RecordError("candle_store")
				uc.log.Warn("save candles failed", logger.String("pool", pool), logger.Error(err))
			}
		}
		return cs, false, nil
	}
	if uc.candles != nil {
		stored, err := uc.candles.GetLatestNCandles(ctx, pool, n, domrepo.Timeframe(tf))
		if err == nil && len(stored) >= strategy.MinCandles {
			return stored, false, nil
		}
	}
	return cs, true, nil
}

// Consensus runs every rule over fresh candles for pool.
func (uc *StrategyUseCase) Consensus(ctx context.Context, pool, tf string, n int) (models.AggregateResult, error) {
	if pool == "" {
		return models.AggregateResult{}, fmt.Errorf("pool required")
	}
	if tf == "" {
		tf = uc.tf
	}
	if n <= 0 {
		n = uc.n
	}
	cs, demo, err := uc.Candles(ctx, pool, tf, n)
	if err != nil {
		return models.AggregateResult{}, err
	}
	start := time.Now()
	res := uc.agg.Aggregate(pool, tf, cs)
	res.Demo = demo
	uc.metrics.RecordLatency("aggregate_seconds", time.Since(start).Seconds())
	uc.metrics.RecordConsensus(pool, string(res.Consensus.Signal))
	return res, nil
}

// Publish sends res to the bus and websocket clients.
func (uc *StrategyUseCase) Publish(ctx context.Context, res models.AggregateResult) {
	if uc.hub != nil {
		uc.hub.Broadcast(ws.Message{Type: EventConsensus, Key: res.Pool, Data: res, Timestamp: time.Now().UnixMilli()})
	}
	if uc.pub != nil {
		if err := uc.pub.PublishConsensus(ctx, res); err != nil {
			uc.metrics.RecordError("publish_consensus")
			uc.log.Warn("publish consensus failed", logger.String("pool", res.Pool), logger.Error(err))
		}
	}
}

// RefreshTask recomputes consensus for every tracked pool.
func (uc *StrategyUseCase) RefreshTask(ctx context.Context, run scheduler.Run) error {
	ticket := uc.guard.Ticket()
	pools := uc.pools
	if ticket.Key != "" && !contains(pools, ticket.Key) {
		pools = append(append([]string{}, pools...), ticket.Key)
	}
	var firstErr error
	for _, pool := range pools {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		res, err := uc.Consensus(ctx, pool, uc.tf, uc.n)
		if err != nil {
			uc.log.Warn("consensus refresh failed", logger.String("pool", pool), logger.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if pool == ticket.Key && !uc.guard.Valid(ticket) {
			uc.log.Debug("dropping stale consensus", logger.String("pool", pool), logger.Int64("generation", int64(run.Generation)))
			continue
		}
		uc.Publish(ctx, res)
	}
	return firstErr
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
