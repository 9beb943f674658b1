package models

// Requests for the HTTP API, bound with echo and validated with validator.

type ConsensusRequest struct {
	Pool string `query:"pool" json:"pool" validate:"required,mint"`
	TF   string `query:"tf" json:"tf" default:"15m" validate:"oneof=1m 5m 15m 1h 4h 1d"`
	N    int    `query:"n" json:"n" default:"200" validate:"gte=21,lte=1000"`
}

type BacktestRequest struct {
	Pool string `json:"pool" validate:"required,mint"`
	TF   string `json:"tf" default:"15m" validate:"oneof=1m 5m 15m 1h 4h 1d"`
	N    int    `json:"n" default:"200" validate:"gte=21,lte=1000"`
}

type BacktestListRequest struct {
	Pool  string `query:"pool" validate:"omitempty,mint"`
	Limit int    `query:"limit" default:"20" validate:"gte=1,lte=200"`
}

type MintParam struct {
	Mint string `param:"mint" validate:"required,mint"`
}

type DashboardRequest struct {
	Mint string `param:"mint" validate:"required,mint"`
	Pool string `query:"pool" validate:"omitempty,mint"`
	TF   string `query:"tf" default:"15m" validate:"oneof=1m 5m 15m 1h 4h 1d"`
}

type SentimentRequest struct {
	Mints string `query:"mints" validate:"required"`
}

type GraduationsRequest struct {
	Limit int `query:"limit" default:"20" validate:"gte=1,lte=100"`
}

type BacktestIDParam struct {
	ID string `param:"id" validate:"required,uuid"`
}

type CandlesRequest struct {
	Pool  string `param:"pool" validate:"required,mint"`
	TF    string `query:"tf" default:"15m" validate:"oneof=1m 5m 15m 1h 4h 1d"`
	Limit int    `query:"limit" default:"200" validate:"gte=1,lte=5000"`
}

// PositionsRequest replaces the whole stored position list.
type PositionsRequest struct {
	Positions []Position `json:"positions" validate:"dive"`
}
