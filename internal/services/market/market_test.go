package market

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"Jarvis/internal/domain/models"
)

const testMint = "So11111111111111111111111111111111111111112"

func newBase(t *testing.T, h http.HandlerFunc) *HTTPServiceBase {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPServiceBase("test", srv.URL, time.Second)
}

func TestDexScreenerPicksDeepestSolanaPair(t *testing.T) {
	base := newBase(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tokens/"+testMint {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"pairs":[
			{"chainId":"ethereum","pairAddress":"eth","priceUsd":"9","liquidity":{"usd":1000000}},
			{"chainId":"solana","dexId":"raydium","pairAddress":"small","priceUsd":"1.1","liquidity":{"usd":100}},
			{"chainId":"solana","dexId":"orca","pairAddress":"deep","baseToken":{"symbol":"SOL","name":"Wrapped SOL"},
			 "priceUsd":"1.25","priceChange":{"h24":-3.5},"volume":{"h24":5000},"liquidity":{"usd":90000},"fdv":777}
		]}`))
	})

	m, err := NewDexScreener(base).TokenMarket(context.Background(), testMint)
	if err != nil {
		t.Fatalf("TokenMarket: %v", err)
	}
	if m.PoolAddress != "deep" || m.DexID != "orca" || m.Symbol != "SOL" {
		t.Fatalf("wrong pair: %+v", m)
	}
	if m.PriceUSD != 1.25 || m.Change24h != -3.5 || m.Liquidity != 90000 || m.MarketCap != 777 {
		t.Fatalf("wrong fields: %+v", m)
	}
}

func TestDexScreenerNoSolanaPair(t *testing.T) {
	base := newBase(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"pairs":[{"chainId":"bsc","priceUsd":"1"}]}`))
	})
	if _, err := NewDexScreener(base).TokenMarket(context.Background(), testMint); err == nil {
		t.Fatalf("expected error")
	}
}

func TestGeckoTerminalCandlesSortedAscending(t *testing.T) {
	base := newBase(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pools/POOL/ohlcv/minute" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("aggregate"); got != "15" {
			t.Errorf("aggregate = %s", got)
		}
		if got := r.URL.Query().Get("limit"); got != "3" {
			t.Errorf("limit = %s", got)
		}
		_, _ = w.Write([]byte(`{"data":{"attributes":{"ohlcv_list":[
			[1700001800,3,3,3,3,30],
			[1700000900,2,2,2,2,20],
			[1700000000,1,1,1,1,10],
			[1700000000,1]
		]}}}`))
	})

	cs, err := NewGeckoTerminal(base).Candles(context.Background(), "POOL", "15m", 3)
	if err != nil {
		t.Fatalf("Candles: %v", err)
	}
	if len(cs) != 3 {
		t.Fatalf("want 3 candles, got %d", len(cs))
	}
	for i, want := range []float64{1, 2, 3} {
		if cs[i].Close != want || cs[i].Symbol != "POOL" {
			t.Fatalf("candle %d = %+v", i, cs[i])
		}
	}
	if !cs[0].Bucket.Equal(time.Unix(1700000000, 0)) {
		t.Fatalf("bucket = %v", cs[0].Bucket)
	}
}

func TestJupiterPriceQuotedAndDerived(t *testing.T) {
	base := newBase(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("showExtraInfo") != "true" {
			t.Errorf("missing showExtraInfo")
		}
		switch r.URL.Query().Get("ids") {
		case "QUOTED":
			_, _ = w.Write([]byte(`{"data":{"QUOTED":{"id":"QUOTED","price":"100",
				"extraInfo":{"quotedPrice":{"buyPrice":"101","sellPrice":"99"}}}}}`))
		case "DERIVED":
			_, _ = w.Write([]byte(`{"data":{"DERIVED":{"id":"DERIVED","price":2}}}`))
		default:
			_, _ = w.Write([]byte(`{"data":{}}`))
		}
	})
	jp := NewJupiterPrice(base)

	s, err := jp.PriceSample(context.Background(), "QUOTED")
	if err != nil {
		t.Fatalf("quoted: %v", err)
	}
	if s.Source != models.SourceQuoted || !s.Reliable || s.Price != 100 || s.Confidence != 1 {
		t.Fatalf("quoted sample = %+v", s)
	}

	s, err = jp.PriceSample(context.Background(), "DERIVED")
	if err != nil {
		t.Fatalf("derived: %v", err)
	}
	if s.Source != models.SourceDerived || s.Reliable {
		t.Fatalf("derived sample = %+v", s)
	}
	if math.Abs(s.Confidence-2*DerivedConfidenceRatio) > 1e-12 {
		t.Fatalf("derived confidence = %v", s.Confidence)
	}

	if _, err := jp.PriceSample(context.Background(), "MISSING"); err == nil {
		t.Fatalf("expected error for missing mint")
	}
}

func TestJupiterQuoteKeepsRawRoute(t *testing.T) {
	base := newBase(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("amount") != "1000" || q.Get("slippageBps") != "50" {
			t.Errorf("query = %v", q)
		}
		_, _ = w.Write([]byte(`{"inputMint":"A","outputMint":"B","inAmount":"1000","outAmount":"990",
			"priceImpactPct":"0.12","slippageBps":50,"routePlan":[{"swapInfo":{"label":"Orca"}},{"swapInfo":{"label":"Raydium"}}]}`))
	})
	q, err := NewJupiterQuote(base).Quote(context.Background(), models.QuoteRequest{
		InputMint: "A", OutputMint: "B", Amount: 1000, SlippageBps: 50,
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.OutAmount != "990" || q.PriceImpactPct != 0.12 || len(q.Labels) != 2 || q.Labels[1] != "Raydium" {
		t.Fatalf("quote = %+v", q)
	}
	var route map[string]interface{}
	if err := json.Unmarshal(q.Route, &route); err != nil || route["inAmount"] != "1000" {
		t.Fatalf("route not preserved: %s", q.Route)
	}
}

func TestSentimentBatch(t *testing.T) {
	base := newBase(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/sentiment/batch" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var req sentimentBatchRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Tokens) != 2 {
			t.Errorf("tokens = %v", req.Tokens)
		}
		_, _ = w.Write([]byte(`{"results":[
			{"mint":"A","score":81,"signal":"bullish","reasoning":"volume"},
			{"mint":"B","score":"12.5","signal":"SELL","reasoning":"rug risk"}
		]}`))
	})
	out, err := NewSentiment(base).Sentiment(context.Background(), []string{"A", "B"})
	if err != nil {
		t.Fatalf("Sentiment: %v", err)
	}
	if len(out) != 2 || out[0].Signal != "BUY" || out[1].Signal != "SELL" || out[1].Score != 12.5 {
		t.Fatalf("out = %+v", out)
	}
}

func TestGraduationScoreWeightedAndClamped(t *testing.T) {
	g := models.Graduation{BondingScore: 100, HolderScore: 100, LiquidityScore: 100, SocialScore: 100}
	if got := GraduationScore(g); got != 100 {
		t.Fatalf("all 100 = %v", got)
	}
	g = models.Graduation{BondingScore: 50, HolderScore: 0, LiquidityScore: 0, SocialScore: 0}
	if got := GraduationScore(g); math.Abs(got-15) > 1e-9 {
		t.Fatalf("bonding only = %v", got)
	}
	if clampScore(250) != 100 || clampScore(-3) != 0 || clampScore(math.NaN()) != 0 {
		t.Fatalf("clamp broken")
	}
}

func TestBagsGraduationsRanked(t *testing.T) {
	base := newBase(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token-launch/graduations" {
			t.Errorf("path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"success":true,"response":[
			{"tokenMint":"LOW","bondingScore":10,"holderScore":10,"liquidityScore":10,"socialScore":10},
			{"tokenMint":"HIGH","bondingScore":90,"holderScore":400,"liquidityScore":80,"socialScore":70},
			{"tokenMint":"MID","bondingScore":50,"holderScore":50,"liquidityScore":50,"socialScore":50}
		]}`))
	})
	out, err := NewBags(base).Graduations(context.Background(), 2)
	if err != nil {
		t.Fatalf("Graduations: %v", err)
	}
	if len(out) != 2 || out[0].Mint != "HIGH" || out[1].Mint != "MID" {
		t.Fatalf("ranking = %+v", out)
	}
	if out[0].HolderScore != 100 || out[0].Score > 100 {
		t.Fatalf("scores not clamped: %+v", out[0])
	}
}

func TestRetryOnServerError(t *testing.T) {
	var calls int32
	base := newBase(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"pairs":[{"chainId":"solana","pairAddress":"p","priceUsd":"1"}]}`))
	})
	if _, err := NewDexScreener(base).TokenMarket(context.Background(), testMint); err != nil {
		t.Fatalf("expected retry to succeed: %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("calls = %d", calls)
	}
}

func TestNoRetryOnNotFound(t *testing.T) {
	var calls int32
	base := newBase(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	})
	_, err := NewDexScreener(base).TokenMarket(context.Background(), testMint)
	if !NotFound(err) {
		t.Fatalf("want not found, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("calls = %d", calls)
	}
}

func TestDemoIsDeterministicAndFlagged(t *testing.T) {
	d := NewDemo()
	fixed := time.Date(2024, 1, 1, 12, 7, 0, 0, time.UTC)
	d.now = func() time.Time { return fixed }

	a, err := d.Candles(context.Background(), "POOL", "15m", 50)
	if err != nil {
		t.Fatalf("Candles: %v", err)
	}
	b, _ := d.Candles(context.Background(), "POOL", "15m", 50)
	if len(a) != 50 {
		t.Fatalf("len = %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("candle %d differs", i)
		}
		if a[i].Low > a[i].Close || a[i].High < a[i].Close || a[i].Low > a[i].Open || a[i].High < a[i].Open {
			t.Fatalf("candle %d out of range: %+v", i, a[i])
		}
		if i > 0 && !a[i].Bucket.After(a[i-1].Bucket) {
			t.Fatalf("buckets not increasing at %d", i)
		}
	}
	if !a[49].Bucket.Equal(fixed.Truncate(15 * time.Minute)) {
		t.Fatalf("last bucket = %v", a[49].Bucket)
	}

	s, _ := d.PriceSample(context.Background(), "MINT")
	if s.Reliable || s.Source != models.SourceDemo || s.Price <= 0 {
		t.Fatalf("demo sample = %+v", s)
	}
	m, _ := d.TokenMarket(context.Background(), "MINT")
	if !m.Demo {
		t.Fatalf("market not flagged demo")
	}
	gs, _ := d.Graduations(context.Background(), 5)
	if len(gs) != 5 || !gs[0].Demo || gs[0].Score < gs[4].Score {
		t.Fatalf("graduations = %+v", gs)
	}
}
