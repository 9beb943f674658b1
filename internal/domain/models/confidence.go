package models

import "time"

// PriceSource says how the oracle produced a price.
type PriceSource string

const (
	SourceQuoted  PriceSource = "quoted"
	SourceDerived PriceSource = "derived"
	SourceDemo    PriceSource = "demo"
	SourceManual  PriceSource = "manual"
)

// PriceSample is one oracle observation. Confidence is the absolute half
// width of the price noise band.
type PriceSample struct {
	Mint       string      `json:"mint" validate:"required,mint"`
	Price      float64     `json:"price" validate:"gte=0"`
	Confidence float64     `json:"confidence" validate:"gte=0"`
	Source     PriceSource `json:"source"`
	Reliable   bool        `json:"reliable"`
	At         time.Time   `json:"at"`
}

type Tier string

const (
	TierLoading  Tier = "loading"
	TierTight    Tier = "tight"
	TierNormal   Tier = "normal"
	TierWide     Tier = "wide"
	TierUnusable Tier = "unusable"
)

// ConfidenceState is the gate verdict after the latest sample.
type ConfidenceState struct {
	Mint          string      `json:"mint"`
	Price         float64     `json:"price"`
	Confidence    float64     `json:"confidence"`
	Ratio         float64     `json:"ratio"`
	Tier          Tier        `json:"tier"`
	Source        PriceSource `json:"source,omitempty"`
	IsVolatile    bool        `json:"is_volatile"`
	IsTripped     bool        `json:"is_tripped"`
	Reason        string      `json:"reason,omitempty"`
	IsSafeToTrade bool        `json:"is_safe_to_trade"`
	UpdatedAt     time.Time   `json:"updated_at"`
	TrippedAt     *time.Time  `json:"tripped_at,omitempty"`
}

// GateTransition is emitted when a mint's breaker trips or recovers.
type GateTransition struct {
	Mint    string          `json:"mint"`
	Tripped bool            `json:"tripped"`
	State   ConfidenceState `json:"state"`
}
