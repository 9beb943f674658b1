package market

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"Jarvis/internal/domain/models"
	"Jarvis/pkg/util"
)

// Demo produces deterministic synthetic data seeded by the mint or pool.
// Everything it returns is flagged Demo and demo-sourced samples are never
// reliable.
type Demo struct {
	now func() time.Time
}

func NewDemo() *Demo { return &Demo{now: time.Now} }

func seedOf(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64() & math.MaxInt64)
}

func (d *Demo) basePrice(key string) float64 {
	r := rand.New(rand.NewSource(seedOf(key)))
	return 0.0001 + r.Float64()*2
}

func (d *Demo) TokenMarket(_ context.Context, mint string) (models.TokenMarket, error) {
	r := rand.New(rand.NewSource(seedOf("market:" + mint)))
	return models.TokenMarket{
		Mint:        mint,
		Symbol:      "DEMO",
		Name:        "Demo token",
		PriceUSD:    d.basePrice(mint),
		Change24h:   r.Float64()*40 - 20,
		Volume24h:   50_000 + r.Float64()*950_000,
		Liquidity:   20_000 + r.Float64()*480_000,
		MarketCap:   1_000_000 + r.Float64()*9_000_000,
		PoolAddress: mint,
		DexID:       "demo",
		Demo:        true,
		UpdatedAt:   d.now().UTC(),
	}, nil
}

// Candles returns n candles of a seeded random walk ending at the current
// bucket. The same pool and timeframe give the same shape.
func (d *Demo) Candles(_ context.Context, pool, tf string, n int) ([]models.Candle, error) {
	step, err := util.ParseTimeframe(tf)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return []models.Candle{}, nil
	}
	r := rand.New(rand.NewSource(seedOf(pool + "|" + tf)))
	end := d.now().UTC().Truncate(step)
	price := d.basePrice(pool)
	out := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		open := price
		price *= 1 + r.NormFloat64()*0.015
		if price <= 0 {
			price = open
		}
		hi := math.Max(open, price) * (1 + r.Float64()*0.005)
		lo := math.Min(open, price) * (1 - r.Float64()*0.005)
		out[i] = models.Candle{
			Bucket: end.Add(-time.Duration(n-1-i) * step),
			Symbol: pool,
			Open:   open,
			High:   hi,
			Low:    lo,
			Close:  price,
			Volume: 1_000 + r.Float64()*9_000,
		}
	}
	return out, nil
}

func (d *Demo) PriceSample(_ context.Context, mint string) (models.PriceSample, error) {
	p := d.basePrice(mint)
	return models.PriceSample{
		Mint:       mint,
		Price:      p,
		Confidence: p * 0.005,
		Source:     models.SourceDemo,
		Reliable:   false,
		At:         d.now().UTC(),
	}, nil
}

func (d *Demo) Sentiment(_ context.Context, mints []string) ([]models.SentimentSignal, error) {
	out := make([]models.SentimentSignal, 0, len(mints))
	for _, m := range mints {
		r := rand.New(rand.NewSource(seedOf("sentiment:" + m)))
		score := math.Round(r.Float64()*1000) / 10
		sig := models.SignalHold
		switch {
		case score >= 65:
			sig = models.SignalBuy
		case score <= 35:
			sig = models.SignalSell
		}
		out = append(out, models.SentimentSignal{
			Mint:      m,
			Score:     score,
			Signal:    string(sig),
			Reasoning: "demo data, sentiment backend unavailable",
			Demo:      true,
			At:        d.now().UTC(),
		})
	}
	return out, nil
}

func (d *Demo) Graduations(_ context.Context, limit int) ([]models.Graduation, error) {
	if limit <= 0 {
		limit = 10
	}
	r := rand.New(rand.NewSource(seedOf("graduations")))
	now := d.now().UTC().Truncate(time.Hour)
	out := make([]models.Graduation, 0, limit)
	for i := 0; i < limit; i++ {
		g := models.Graduation{
			Mint:           demoMint(r),
			Symbol:         "DEMO",
			Name:           "Demo graduate",
			BondingScore:   r.Float64() * 100,
			HolderScore:    r.Float64() * 100,
			LiquidityScore: r.Float64() * 100,
			SocialScore:    r.Float64() * 100,
			GraduatedAt:    now.Add(-time.Duration(i) * time.Hour),
			Demo:           true,
		}
		g.Score = GraduationScore(g)
		out = append(out, g)
	}
	RankGraduations(out)
	return out, nil
}

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

func demoMint(r *rand.Rand) string {
	b := make([]byte, 44)
	for i := range b {
		b[i] = base58Alphabet[r.Intn(len(base58Alphabet))]
	}
	return string(b)
}
