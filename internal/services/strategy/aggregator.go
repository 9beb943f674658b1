package strategy

import (
	"time"

	"Jarvis/internal/domain/models"
	"Jarvis/internal/services/features"
)

// Aggregator runs a fixed rule set over one candle window.
type Aggregator struct {
	rules    []Rule
	majority float64
	observe  func(rule string, elapsed time.Duration)
}

type Option func(*Aggregator)

func WithRules(rules ...Rule) Option {
	return func(a *Aggregator) { a.rules = rules }
}

func WithMajority(m float64) Option {
	return func(a *Aggregator) { a.majority = m }
}

// WithObserver receives each rule's backtest duration.
func WithObserver(fn func(rule string, elapsed time.Duration)) Option {
	return func(a *Aggregator) { a.observe = fn }
}

func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{rules: Default(), majority: DefaultMajority}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Rules lists rule names in declaration order.
func (a *Aggregator) Rules() []string {
	names := make([]string, len(a.rules))
	for i, r := range a.rules {
		names[i] = r.Name()
	}
	return names
}

// Aggregate backtests every rule and folds the current signals. Windows
// shorter than MinCandles yield no results and a HOLD consensus. ComputedAt
// is the last candle's bucket so equal input gives equal output.
func (a *Aggregator) Aggregate(pool, tf string, candles []models.Candle) models.AggregateResult {
	out := models.AggregateResult{
		Pool:      pool,
		Timeframe: tf,
		Results:   []models.StrategyResult{},
		Consensus: models.ConsensusResult{Signal: models.SignalHold},
	}
	w := newWindow(candles)
	out.Candles = w.Len()
	if w.Len() < MinCandles {
		return out
	}
	out.ComputedAt = w.candles[w.Len()-1].Bucket

	for _, r := range a.rules {
		start := time.Now()
		out.Results = append(out.Results, backtestWindow(r, w))
		if a.observe != nil {
			a.observe(r.Name(), time.Since(start))
		}
	}
	if i := Best(out.Results); i >= 0 {
		best := out.Results[i]
		out.Best = &best
	}
	out.Consensus = Consensus(out.Results, a.majority)
	out.Volatility = features.Volatility(w.candles, MinCandles-1, tf)
	return out
}
