package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is an open holding. Amounts are decimals to keep PnL exact.
type Position struct {
	ID            string          `json:"id"`
	Mint          string          `json:"mint" validate:"required,mint"`
	Symbol        string          `json:"symbol"`
	EntryPrice    decimal.Decimal `json:"entry_price"`
	Amount        decimal.Decimal `json:"amount"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	TakeProfitPct float64         `json:"take_profit_pct,omitempty"`
	StopLossPct   float64         `json:"stop_loss_pct,omitempty"`
	OpenedAt      time.Time       `json:"opened_at"`
	PnL           decimal.Decimal `json:"pnl"`
	PnLPct        float64         `json:"pnl_pct"`
}

type SnipeRecord struct {
	ID        string          `json:"id"`
	Mint      string          `json:"mint" validate:"required,mint"`
	Symbol    string          `json:"symbol"`
	AmountSOL decimal.Decimal `json:"amount_sol"`
	Signature string          `json:"signature"`
	Status    string          `json:"status" default:"submitted" validate:"oneof=submitted confirmed failed"`
	At        time.Time       `json:"at"`
}

// AlgoConfig drives the automated picker.
type AlgoConfig struct {
	Enabled        bool            `json:"enabled"`
	MaxPositionSOL decimal.Decimal `json:"max_position_sol"`
	MaxPositions   int             `json:"max_positions" validate:"gte=1,lte=50"`
	MinScore       float64         `json:"min_score" validate:"gte=0,lte=100"`
	TakeProfitPct  float64         `json:"take_profit_pct" validate:"gt=0"`
	StopLossPct    float64         `json:"stop_loss_pct" validate:"gt=0,lte=100"`
	SlippageBps    int             `json:"slippage_bps" validate:"gte=1,lte=5000"`
	UseJito        bool            `json:"use_jito"`
	RequireSafe    bool            `json:"require_safe"`
}

// DefaultAlgoConfig is used when nothing was stored or the stored blob is
// unreadable.
func DefaultAlgoConfig() AlgoConfig {
	return AlgoConfig{
		MaxPositionSOL: decimal.NewFromFloat(0.1),
		MaxPositions:   5,
		MinScore:       70,
		TakeProfitPct:  25,
		StopLossPct:    10,
		SlippageBps:    100,
		RequireSafe:    true,
	}
}

type PickPerformance struct {
	Mint         string    `json:"mint" validate:"required,mint"`
	Symbol       string    `json:"symbol"`
	Source       string    `json:"source"`
	PickedAt     time.Time `json:"picked_at"`
	PickPrice    float64   `json:"pick_price" validate:"gt=0"`
	CurrentPrice float64   `json:"current_price"`
	ReturnPct    float64   `json:"return_pct"`
}
