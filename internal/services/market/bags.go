package market

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"time"

	"Jarvis/internal/domain/models"
)

// Sub-score weights of the graduation ranking.
const (
	weightBonding   = 0.30
	weightHolders   = 0.25
	weightLiquidity = 0.25
	weightSocial    = 0.20
)

// Bags reads the launch platform's graduation feed.
type Bags struct {
	*HTTPServiceBase
}

func NewBags(base *HTTPServiceBase) *Bags {
	return &Bags{HTTPServiceBase: base}
}

type bagsGraduationsResponse struct {
	Success  bool `json:"success"`
	Response []struct {
		TokenMint      string    `json:"tokenMint"`
		Symbol         string    `json:"symbol"`
		Name           string    `json:"name"`
		BondingScore   flexFloat `json:"bondingScore"`
		HolderScore    flexFloat `json:"holderScore"`
		LiquidityScore flexFloat `json:"liquidityScore"`
		SocialScore    flexFloat `json:"socialScore"`
		GraduatedAt    int64     `json:"graduatedAt"`
	} `json:"response"`
}

// Graduations returns up to limit tokens ranked by score, highest first.
func (b *Bags) Graduations(ctx context.Context, limit int) ([]models.Graduation, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var resp bagsGraduationsResponse
	if err := b.GetJSONWithRetry(ctx, "/token-launch/graduations", q, &resp, 2); err != nil {
		return nil, err
	}
	out := make([]models.Graduation, 0, len(resp.Response))
	for _, r := range resp.Response {
		g := models.Graduation{
			Mint:           r.TokenMint,
			Symbol:         r.Symbol,
			Name:           r.Name,
			BondingScore:   clampScore(float64(r.BondingScore)),
			HolderScore:    clampScore(float64(r.HolderScore)),
			LiquidityScore: clampScore(float64(r.LiquidityScore)),
			SocialScore:    clampScore(float64(r.SocialScore)),
		}
		if r.GraduatedAt > 0 {
			g.GraduatedAt = time.Unix(r.GraduatedAt, 0).UTC()
		}
		g.Score = GraduationScore(g)
		out = append(out, g)
	}
	RankGraduations(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GraduationScore is the weighted mean of the sub-scores, clamped to
// [0,100].
func GraduationScore(g models.Graduation) float64 {
	s := g.BondingScore*weightBonding +
		g.HolderScore*weightHolders +
		g.LiquidityScore*weightLiquidity +
		g.SocialScore*weightSocial
	return clampScore(s)
}

// RankGraduations sorts by score descending, newest first on ties.
func RankGraduations(gs []models.Graduation) {
	sort.SliceStable(gs, func(i, j int) bool {
		if gs[i].Score != gs[j].Score {
			return gs[i].Score > gs[j].Score
		}
		return gs[i].GraduatedAt.After(gs[j].GraduatedAt)
	})
}

func clampScore(v float64) float64 {
	switch {
	case v != v, v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
