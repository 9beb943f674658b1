package models

import "time"

// Dashboard is a fan-out snapshot for one mint. Errors maps a part name to
// the reason it is missing; parts that failed are left nil.
type Dashboard struct {
	Mint       string            `json:"mint"`
	Pool       string            `json:"pool,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
	Market     *TokenMarket      `json:"market,omitempty"`
	Sentiment  *SentimentSignal  `json:"sentiment,omitempty"`
	Confidence *ConfidenceState  `json:"confidence,omitempty"`
	Strategies *AggregateResult  `json:"strategies,omitempty"`
	Graduation *Graduation       `json:"graduation,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
}
