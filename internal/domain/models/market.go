package models

import (
	"encoding/json"
	"time"
)

// TokenMarket is the best-liquidity pair snapshot for a mint.
type TokenMarket struct {
	Mint        string    `json:"mint"`
	Symbol      string    `json:"symbol"`
	Name        string    `json:"name"`
	PriceUSD    float64   `json:"price_usd"`
	Change24h   float64   `json:"change_24h"`
	Volume24h   float64   `json:"volume_24h"`
	Liquidity   float64   `json:"liquidity"`
	MarketCap   float64   `json:"market_cap"`
	PoolAddress string    `json:"pool_address"`
	DexID       string    `json:"dex_id"`
	Demo        bool      `json:"demo,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type SentimentSignal struct {
	Mint      string    `json:"mint"`
	Symbol    string    `json:"symbol,omitempty"`
	Score     float64   `json:"score"`
	Signal    string    `json:"signal"`
	Reasoning string    `json:"reasoning"`
	Demo      bool      `json:"demo,omitempty"`
	At        time.Time `json:"at"`
}

// Graduation is a token that left its bonding curve. Sub-scores and Score
// are on a 0-100 scale.
type Graduation struct {
	Mint           string    `json:"mint"`
	Symbol         string    `json:"symbol"`
	Name           string    `json:"name"`
	BondingScore   float64   `json:"bonding_score"`
	HolderScore    float64   `json:"holder_score"`
	LiquidityScore float64   `json:"liquidity_score"`
	SocialScore    float64   `json:"social_score"`
	Score          float64   `json:"score"`
	GraduatedAt    time.Time `json:"graduated_at"`
	Demo           bool      `json:"demo,omitempty"`
}

type QuoteRequest struct {
	InputMint   string `query:"input_mint" json:"input_mint" validate:"required,mint"`
	OutputMint  string `query:"output_mint" json:"output_mint" validate:"required,mint,nefield=InputMint"`
	Amount      uint64 `query:"amount" json:"amount" validate:"required,gt=0"`
	SlippageBps int    `query:"slippage_bps" json:"slippage_bps" default:"50" validate:"gte=1,lte=5000"`
}

// Quote is a swap route. Route carries the upstream quote verbatim so the
// client can hand it to a swap builder.
type Quote struct {
	InputMint      string          `json:"input_mint"`
	OutputMint     string          `json:"output_mint"`
	InAmount       string          `json:"in_amount"`
	OutAmount      string          `json:"out_amount"`
	PriceImpactPct float64         `json:"price_impact_pct"`
	SlippageBps    int             `json:"slippage_bps"`
	Labels         []string        `json:"labels,omitempty"`
	Route          json.RawMessage `json:"route,omitempty"`
}

type SubmitRequest struct {
	Mint        string `json:"mint" validate:"required,mint"`
	Transaction string `json:"transaction" validate:"required,base64"`
	UseJito     *bool  `json:"use_jito,omitempty"`
}

type SubmitResult struct {
	Signature   string    `json:"signature"`
	Route       string    `json:"route"`
	SubmittedAt time.Time `json:"submitted_at"`
}
