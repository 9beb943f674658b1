package models

import "time"

type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// BacktestSummary is the performance of one strategy over a candle window.
// Percentages are expressed in percent, not fractions.
type BacktestSummary struct {
	WinRate      float64 `json:"win_rate"`
	AvgReturn    float64 `json:"avg_return"`
	TotalTrades  int     `json:"total_trades"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	ProfitFactor Float   `json:"profit_factor"`
	SharpeRatio  float64 `json:"sharpe_ratio"`
}

// TradeRecord is one simulated long round trip.
type TradeRecord struct {
	EntryAt    time.Time `json:"entry_at"`
	ExitAt     time.Time `json:"exit_at"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	ReturnPct  float64   `json:"return_pct"`
	ForcedExit bool      `json:"forced_exit,omitempty"`
}

type StrategyResult struct {
	Name    string          `json:"name"`
	Summary BacktestSummary `json:"summary"`
	Signal  Signal          `json:"signal"`
	Price   float64         `json:"price"`
	Reason  string          `json:"reason"`
	Trades  []TradeRecord   `json:"trades,omitempty"`
}

type ConsensusResult struct {
	Signal    Signal `json:"signal"`
	BuyCount  int    `json:"buy_count"`
	SellCount int    `json:"sell_count"`
	HoldCount int    `json:"hold_count"`
	Total     int    `json:"total"`
}

// AggregateResult is the output of one aggregator pass over a pool's candles.
type AggregateResult struct {
	Pool       string           `json:"pool"`
	Timeframe  string           `json:"timeframe"`
	Candles    int              `json:"candles"`
	Results    []StrategyResult `json:"results"`
	Best       *StrategyResult  `json:"best,omitempty"`
	Consensus  ConsensusResult  `json:"consensus"`
	Volatility float64          `json:"volatility"`
	Demo       bool             `json:"demo,omitempty"`
	ComputedAt time.Time        `json:"computed_at"`
}

type BacktestStatus string

const (
	BacktestQueued  BacktestStatus = "queued"
	BacktestRunning BacktestStatus = "running"
	BacktestDone    BacktestStatus = "done"
	BacktestFailed  BacktestStatus = "failed"
)

// BacktestRecord tracks an asynchronous backtest job and its result.
type BacktestRecord struct {
	ID         string           `json:"id"`
	Pool       string           `json:"pool"`
	Timeframe  string           `json:"timeframe"`
	Candles    int              `json:"candles"`
	Status     BacktestStatus   `json:"status"`
	Result     *AggregateResult `json:"result,omitempty"`
	Error      string           `json:"error,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
}
