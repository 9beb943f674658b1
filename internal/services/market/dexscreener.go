package market

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"Jarvis/internal/domain/models"
)

// DexScreener resolves a mint to its deepest Solana pair.
type DexScreener struct {
	*HTTPServiceBase
}

func NewDexScreener(base *HTTPServiceBase) *DexScreener {
	return &DexScreener{HTTPServiceBase: base}
}

type dexPair struct {
	ChainID     string `json:"chainId"`
	DexID       string `json:"dexId"`
	PairAddress string `json:"pairAddress"`
	BaseToken   struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	PriceUSD    flexFloat `json:"priceUsd"`
	PriceChange struct {
		H24 flexFloat `json:"h24"`
	} `json:"priceChange"`
	Volume struct {
		H24 flexFloat `json:"h24"`
	} `json:"volume"`
	Liquidity struct {
		USD flexFloat `json:"usd"`
	} `json:"liquidity"`
	FDV       flexFloat `json:"fdv"`
	MarketCap flexFloat `json:"marketCap"`
}

type dexTokensResponse struct {
	Pairs []dexPair `json:"pairs"`
}

// TokenMarket returns the best-liquidity Solana pair for mint.
func (d *DexScreener) TokenMarket(ctx context.Context, mint string) (models.TokenMarket, error) {
	var resp dexTokensResponse
	if err := d.GetJSONWithRetry(ctx, "/tokens/"+url.PathEscape(mint), nil, &resp, 2); err != nil {
		return models.TokenMarket{}, err
	}
	best, ok := bestPair(resp.Pairs)
	if !ok {
		return models.TokenMarket{}, fmt.Errorf("dexscreener: no solana pair for %s", mint)
	}
	mc := float64(best.MarketCap)
	if mc == 0 {
		mc = float64(best.FDV)
	}
	return models.TokenMarket{
		Mint:        mint,
		Symbol:      best.BaseToken.Symbol,
		Name:        best.BaseToken.Name,
		PriceUSD:    float64(best.PriceUSD),
		Change24h:   float64(best.PriceChange.H24),
		Volume24h:   float64(best.Volume.H24),
		Liquidity:   float64(best.Liquidity.USD),
		MarketCap:   mc,
		PoolAddress: best.PairAddress,
		DexID:       best.DexID,
		UpdatedAt:   time.Now().UTC(),
	}, nil
}

func bestPair(pairs []dexPair) (dexPair, bool) {
	var best dexPair
	found := false
	for _, p := range pairs {
		if !strings.EqualFold(p.ChainID, "solana") {
			continue
		}
		if !found || p.Liquidity.USD > best.Liquidity.USD {
			best, found = p, true
		}
	}
	return best, found
}
