package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"Jarvis/internal/domain/models"
)

// DashboardUseCase assembles the terminal snapshot for one mint. Parts are
// fetched concurrently; a failed part is reported in Errors and the rest
// still render.
type DashboardUseCase struct {
	market   *MarketUseCase
	strategy *StrategyUseCase
	conf     *ConfidenceUseCase
	timeout  time.Duration
}

func NewDashboardUseCase(market *MarketUseCase, st *StrategyUseCase, conf *ConfidenceUseCase) *DashboardUseCase {
	return &DashboardUseCase{market: market, strategy: st, conf: conf, timeout: 10 * time.Second}
}

type DashboardParams struct {
	Mint string
	Pool string
	TF   string
}

func (uc *DashboardUseCase) Snapshot(ctx context.Context, p DashboardParams) (*models.Dashboard, error) {
	if p.Mint == "" {
		return nil, fmt.Errorf("mint required")
	}
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	res := &models.Dashboard{
		Mint:      p.Mint,
		Pool:      p.Pool,
		Timestamp: time.Now().UTC(),
		Errors:    map[string]string{},
	}
	st := uc.conf.State(p.Mint)
	res.Confidence = &st

	// The market part resolves the pool when none was given, so strategies
	// wait for it.
	market, err := uc.market.TokenMarket(ctx, p.Mint)
	if err != nil {
		res.Errors["market"] = err.Error()
	} else {
		res.Market = &market
		if res.Pool == "" {
			res.Pool = market.PoolAddress
		}
	}

	type item struct {
		name string
		val  interface{}
		err  error
	}
	ch := make(chan item, 3)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := uc.market.Sentiment(ctx, []string{p.Mint})
		ch <- item{"sentiment", v, err}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := uc.market.Graduations(ctx, 50)
		ch <- item{"graduation", v, err}
	}()
	if res.Pool != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := uc.strategy.Consensus(ctx, res.Pool, p.TF, 0)
			ch <- item{"strategies", v, err}
		}()
	} else {
		res.Errors["strategies"] = "no pool for mint"
	}

	go func() { wg.Wait(); close(ch) }()

	for it := range ch {
		if it.err != nil {
			res.Errors[it.name] = it.err.Error()
			continue
		}
		switch it.name {
		case "sentiment":
			for _, s := range it.val.([]models.SentimentSignal) {
				if s.Mint == p.Mint {
					v := s
					res.Sentiment = &v
					break
				}
			}
		case "graduation":
			for _, g := range it.val.([]models.Graduation) {
				if g.Mint == p.Mint {
					v := g
					res.Graduation = &v
					break
				}
			}
		case "strategies":
			v := it.val.(models.AggregateResult)
			res.Strategies = &v
		}
	}

	if len(res.Errors) == 0 {
		res.Errors = nil
	}
	return res, nil
}
