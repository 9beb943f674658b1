package market

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"Jarvis/internal/domain/models"
)

// DerivedConfidenceRatio is the synthetic band width put on prices that
// come without a quoted buy and sell side.
const DerivedConfidenceRatio = 0.05

// JupiterPrice turns Jupiter's price feed into gate samples.
type JupiterPrice struct {
	*HTTPServiceBase
}

func NewJupiterPrice(base *HTTPServiceBase) *JupiterPrice {
	return &JupiterPrice{HTTPServiceBase: base}
}

type jupPriceEntry struct {
	ID        string    `json:"id"`
	Price     flexFloat `json:"price"`
	ExtraInfo *struct {
		QuotedPrice *struct {
			BuyPrice  flexFloat `json:"buyPrice"`
			SellPrice flexFloat `json:"sellPrice"`
		} `json:"quotedPrice"`
	} `json:"extraInfo"`
}

type jupPriceResponse struct {
	Data map[string]*jupPriceEntry `json:"data"`
}

// PriceSample fetches one mint. The confidence is half the spread between
// the quoted buy and sell price.
func (j *JupiterPrice) PriceSample(ctx context.Context, mint string) (models.PriceSample, error) {
	q := url.Values{}
	q.Set("ids", mint)
	q.Set("showExtraInfo", "true")

	var resp jupPriceResponse
	if err := j.GetJSONWithRetry(ctx, "/price", q, &resp, 2); err != nil {
		return models.PriceSample{}, err
	}
	e, ok := resp.Data[mint]
	if !ok || e == nil {
		return models.PriceSample{}, fmt.Errorf("jupiter: no price for %s", mint)
	}
	return sampleFromEntry(mint, e, time.Now().UTC()), nil
}

func sampleFromEntry(mint string, e *jupPriceEntry, at time.Time) models.PriceSample {
	s := models.PriceSample{Mint: mint, Price: float64(e.Price), At: at}
	if e.ExtraInfo != nil && e.ExtraInfo.QuotedPrice != nil {
		buy, sell := float64(e.ExtraInfo.QuotedPrice.BuyPrice), float64(e.ExtraInfo.QuotedPrice.SellPrice)
		if buy > 0 && sell > 0 {
			s.Confidence = math.Abs(buy-sell) / 2
			s.Source = models.SourceQuoted
			s.Reliable = true
			if s.Price <= 0 {
				s.Price = (buy + sell) / 2
			}
			return s
		}
	}
	s.Source = models.SourceDerived
	s.Confidence = s.Price * DerivedConfidenceRatio
	return s
}

// JupiterQuote asks the swap aggregator for a route.
type JupiterQuote struct {
	*HTTPServiceBase
}

func NewJupiterQuote(base *HTTPServiceBase) *JupiterQuote {
	return &JupiterQuote{HTTPServiceBase: base}
}

type jupQuoteResponse struct {
	InputMint      string    `json:"inputMint"`
	OutputMint     string    `json:"outputMint"`
	InAmount       string    `json:"inAmount"`
	OutAmount      string    `json:"outAmount"`
	PriceImpactPct flexFloat `json:"priceImpactPct"`
	SlippageBps    int       `json:"slippageBps"`
	RoutePlan      []struct {
		SwapInfo struct {
			Label string `json:"label"`
		} `json:"swapInfo"`
	} `json:"routePlan"`
}

func (j *JupiterQuote) Quote(ctx context.Context, req models.QuoteRequest) (models.Quote, error) {
	q := url.Values{}
	q.Set("inputMint", req.InputMint)
	q.Set("outputMint", req.OutputMint)
	q.Set("amount", strconv.FormatUint(req.Amount, 10))
	q.Set("slippageBps", strconv.Itoa(req.SlippageBps))

	var raw json.RawMessage
	if err := j.GetJSON(ctx, "/quote", q, &raw); err != nil {
		return models.Quote{}, err
	}
	var resp jupQuoteResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return models.Quote{}, fmt.Errorf("jupiter quote decode: %w", err)
	}
	labels := make([]string, 0, len(resp.RoutePlan))
	for _, r := range resp.RoutePlan {
		if r.SwapInfo.Label != "" {
			labels = append(labels, r.SwapInfo.Label)
		}
	}
	return models.Quote{
		InputMint:      resp.InputMint,
		OutputMint:     resp.OutputMint,
		InAmount:       resp.InAmount,
		OutAmount:      resp.OutAmount,
		PriceImpactPct: float64(resp.PriceImpactPct),
		SlippageBps:    resp.SlippageBps,
		Labels:         labels,
		Route:          raw,
	}, nil
}
