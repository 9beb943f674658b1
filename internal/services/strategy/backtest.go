package strategy

import (
	"math"

	"Jarvis/internal/domain/models"
)

// Backtest replays rule over candles as a long-only strategy: enter on BUY
// while flat, exit on SELL, and close any open position at the last bar.
// It also returns the rule's verdict on the final bar.
func Backtest(rule Rule, candles []models.Candle) models.StrategyResult {
	return backtestWindow(rule, newWindow(candles))
}

func backtestWindow(rule Rule, w *window) models.StrategyResult {
	res := models.StrategyResult{Name: rule.Name(), Signal: models.SignalHold}
	n := w.Len()
	start := rule.Lookback()
	if n == 0 || start >= n {
		res.Reason = "not enough candles"
		res.Summary = Summarize(nil)
		return res
	}
	eval := rule.Prepare(w)

	var (
		trades []models.TradeRecord
		open   bool
		entry  int
	)
	for i := start; i < n; i++ {
		sig, reason := eval(i)
		price := w.close(i)
		switch {
		case !open && sig == models.SignalBuy && price > 0:
			open, entry = true, i
		case open && sig == models.SignalSell:
			trades = append(trades, closeTrade(w, entry, i, false))
			open = false
		}
		if i == n-1 {
			res.Signal, res.Reason, res.Price = sig, reason, price
		}
	}
	if open {
		trades = append(trades, closeTrade(w, entry, n-1, true))
	}

	res.Trades = trades
	res.Summary = Summarize(trades)
	return res
}

func closeTrade(w *window, entry, exit int, forced bool) models.TradeRecord {
	in, out := w.close(entry), w.close(exit)
	return models.TradeRecord{
		EntryAt:    w.candles[entry].Bucket,
		ExitAt:     w.candles[exit].Bucket,
		EntryPrice: in,
		ExitPrice:  out,
		ReturnPct:  (out/in - 1) * 100,
		ForcedExit: forced,
	}
}

// Summarize derives performance statistics from closed trades. A trade with
// a return of exactly zero counts as a loss so that wins and losses always
// add up to the trade count.
func Summarize(trades []models.TradeRecord) models.BacktestSummary {
	var s models.BacktestSummary
	s.TotalTrades = len(trades)
	if s.TotalTrades == 0 {
		return s
	}

	var (
		sum, grossProfit, grossLoss float64
		equity, peak                = 1.0, 1.0
	)
	for _, t := range trades {
		r := t.ReturnPct
		sum += r
		if r > 0 {
			s.Wins++
			grossProfit += r
		} else {
			s.Losses++
			grossLoss -= r
		}

		equity *= 1 + r/100
		if equity > peak {
			peak = equity
		}
		if dd := (peak - equity) / peak * 100; dd > s.MaxDrawdown {
			s.MaxDrawdown = dd
		}
	}

	n := float64(s.TotalTrades)
	s.WinRate = float64(s.Wins) / n * 100
	s.AvgReturn = sum / n
	s.ProfitFactor = models.Float(profitFactor(grossProfit, grossLoss))
	s.SharpeRatio = sharpe(trades, s.AvgReturn)
	return s
}

func profitFactor(profit, loss float64) float64 {
	if loss == 0 {
		if profit > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return profit / loss
}

// sharpe is mean over population standard deviation of trade returns.
func sharpe(trades []models.TradeRecord, mean float64) float64 {
	if len(trades) < 2 {
		return 0
	}
	var ss float64
	for _, t := range trades {
		d := t.ReturnPct - mean
		ss += d * d
	}
	std := math.Sqrt(ss / float64(len(trades)))
	if std == 0 {
		return 0
	}
	return mean / std
}
