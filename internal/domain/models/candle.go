package models

import "time"

// Candle is one OHLCV bucket. Symbol holds the pool address the candles
// were fetched for.
type Candle struct {
	Bucket time.Time `json:"t"`
	Symbol string    `json:"symbol,omitempty"`
	Open   float64   `json:"o"`
	High   float64   `json:"h"`
	Low    float64   `json:"l"`
	Close  float64   `json:"c"`
	Volume float64   `json:"v"`
}
