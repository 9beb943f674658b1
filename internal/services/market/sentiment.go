package market

import (
	"context"
	"strings"
	"time"

	"Jarvis/internal/domain/models"
)

// Sentiment calls the AI sentiment backend in batches.
type Sentiment struct {
	*HTTPServiceBase
}

func NewSentiment(base *HTTPServiceBase) *Sentiment {
	return &Sentiment{HTTPServiceBase: base}
}

type sentimentBatchRequest struct {
	Tokens []string `json:"tokens"`
}

type sentimentBatchResponse struct {
	Results []struct {
		Mint      string    `json:"mint"`
		Symbol    string    `json:"symbol"`
		Score     flexFloat `json:"score"`
		Signal    string    `json:"signal"`
		Reasoning string    `json:"reasoning"`
	} `json:"results"`
}

func (s *Sentiment) Sentiment(ctx context.Context, mints []string) ([]models.SentimentSignal, error) {
	if len(mints) == 0 {
		return []models.SentimentSignal{}, nil
	}
	var resp sentimentBatchResponse
	if err := s.PostJSON(ctx, "/sentiment/batch", sentimentBatchRequest{Tokens: mints}, &resp); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	out := make([]models.SentimentSignal, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, models.SentimentSignal{
			Mint:      r.Mint,
			Symbol:    r.Symbol,
			Score:     float64(r.Score),
			Signal:    normalizeSignal(r.Signal),
			Reasoning: r.Reasoning,
			At:        now,
		})
	}
	return out, nil
}

func normalizeSignal(s string) string {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "BULLISH":
		return string(models.SignalBuy)
	case "SELL", "BEARISH":
		return string(models.SignalSell)
	default:
		return string(models.SignalHold)
	}
}
