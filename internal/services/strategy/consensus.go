package strategy

import "Jarvis/internal/domain/models"

// DefaultMajority is the share of strategies that must agree, exclusive.
const DefaultMajority = 0.5

// Consensus folds per-strategy signals into one. BUY requires the buy share
// to strictly exceed majority, SELL likewise; anything else, including a
// case where both sides clear a low majority, is HOLD.
func Consensus(results []models.StrategyResult, majority float64) models.ConsensusResult {
	if majority <= 0 || majority >= 1 {
		majority = DefaultMajority
	}
	c := models.ConsensusResult{Signal: models.SignalHold, Total: len(results)}
	for _, r := range results {
		switch r.Signal {
		case models.SignalBuy:
			c.BuyCount++
		case models.SignalSell:
			c.SellCount++
		default:
			c.HoldCount++
		}
	}
	if c.Total == 0 {
		return c
	}
	buy := float64(c.BuyCount)/float64(c.Total) > majority
	sell := float64(c.SellCount)/float64(c.Total) > majority
	switch {
	case buy && !sell:
		c.Signal = models.SignalBuy
	case sell && !buy:
		c.Signal = models.SignalSell
	}
	return c
}

// Best picks the highest win rate, then the lowest drawdown, then the
// earliest declared. It returns -1 for an empty slice.
func Best(results []models.StrategyResult) int {
	best := -1
	for i, r := range results {
		if best < 0 {
			best = i
			continue
		}
		b := results[best].Summary
		switch {
		case r.Summary.WinRate > b.WinRate:
			best = i
		case r.Summary.WinRate == b.WinRate && r.Summary.MaxDrawdown < b.MaxDrawdown:
			best = i
		}
	}
	return best
}
