package strategy

import (
	"math"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"Jarvis/internal/domain/models"
)

var t0 = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

// rangeBound returns n candles oscillating between 10.00 and 10.02.
func rangeBound(n int) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		c := 10 + 0.02*float64(i%2)
		out[i] = models.Candle{
			Bucket: t0.Add(time.Duration(i) * 15 * time.Minute),
			Open:   c, High: c + 0.5, Low: c - 0.5, Close: c, Volume: 100,
		}
	}
	return out
}

// withSpike appends a high-volume breakout bar.
func withSpike(candles []models.Candle) []models.Candle {
	last := candles[len(candles)-1]
	return append(candles, models.Candle{
		Bucket: last.Bucket.Add(15 * time.Minute),
		Open:   10, High: 12.2, Low: 10, Close: 12, Volume: 1000,
	})
}

func trending(n int, step float64) []models.Candle {
	out := make([]models.Candle, n)
	price := 10.0
	for i := range out {
		out[i] = models.Candle{
			Bucket: t0.Add(time.Duration(i) * time.Hour),
			Open:   price, High: price * 1.001, Low: price * 0.999, Close: price, Volume: 50,
		}
		price *= 1 + step
	}
	return out
}

func randomWalk(n int, seed int64) []models.Candle {
	r := rand.New(rand.NewSource(seed))
	out := make([]models.Candle, n)
	price := 1.0
	for i := range out {
		open := price
		price *= 1 + (r.Float64()-0.5)*0.08
		hi := math.Max(open, price) * (1 + r.Float64()*0.01)
		lo := math.Min(open, price) * (1 - r.Float64()*0.01)
		out[i] = models.Candle{
			Bucket: t0.Add(time.Duration(i) * 5 * time.Minute),
			Open:   open, High: hi, Low: lo, Close: price, Volume: 100 + r.Float64()*400,
		}
	}
	return out
}

func trades(returns ...float64) []models.TradeRecord {
	out := make([]models.TradeRecord, len(returns))
	for i, r := range returns {
		out[i] = models.TradeRecord{EntryPrice: 100, ExitPrice: 100 + r, ReturnPct: r}
	}
	return out
}

func TestSummarizeStatistics(t *testing.T) {
	s := Summarize(trades(10, -5, 0))
	if s.TotalTrades != 3 || s.Wins != 1 || s.Losses != 2 {
		t.Fatalf("unexpected counts %+v", s)
	}
	if math.Abs(s.WinRate-100.0/3) > 1e-9 {
		t.Fatalf("win rate %v", s.WinRate)
	}
	if math.Abs(s.AvgReturn-5.0/3) > 1e-9 {
		t.Fatalf("avg return %v", s.AvgReturn)
	}
	if float64(s.ProfitFactor) != 2 {
		t.Fatalf("profit factor %v", s.ProfitFactor)
	}
	// equity 1.10 then 1.045: a 5% drawdown from the peak
	if math.Abs(s.MaxDrawdown-5) > 1e-9 {
		t.Fatalf("max drawdown %v", s.MaxDrawdown)
	}
	wantSharpe := (5.0 / 3) / math.Sqrt((math.Pow(10-5.0/3, 2)+math.Pow(-5-5.0/3, 2)+math.Pow(-5.0/3, 2))/3)
	if math.Abs(s.SharpeRatio-wantSharpe) > 1e-9 {
		t.Fatalf("sharpe %v, want %v", s.SharpeRatio, wantSharpe)
	}
}

func TestSummarizeProfitFactorEdges(t *testing.T) {
	if pf := Summarize(trades(1, 2)).ProfitFactor; !math.IsInf(float64(pf), 1) {
		t.Fatalf("no losses must give +Inf, got %v", pf)
	}
	flat := Summarize(trades(0))
	if flat.ProfitFactor != 0 || flat.Losses != 1 || flat.SharpeRatio != 0 {
		t.Fatalf("flat trade: %+v", flat)
	}
	if empty := Summarize(nil); empty != (models.BacktestSummary{}) {
		t.Fatalf("no trades must be zero summary, got %+v", empty)
	}
	if s := Summarize(trades(3, 3)); s.SharpeRatio != 0 {
		t.Fatalf("zero deviation must give 0 sharpe, got %v", s.SharpeRatio)
	}
}

func TestConsensus(t *testing.T) {
	sig := func(ss ...models.Signal) []models.StrategyResult {
		out := make([]models.StrategyResult, len(ss))
		for i, s := range ss {
			out[i].Signal = s
		}
		return out
	}
	B, S, H := models.SignalBuy, models.SignalSell, models.SignalHold

	cases := []struct {
		name     string
		in       []models.StrategyResult
		majority float64
		want     models.Signal
	}{
		{"three of four buy", sig(B, B, B, H), 0.5, B},
		{"three of four sell", sig(S, S, H, S), 0.5, S},
		{"exact half is not a majority", sig(B, B, H, H), 0.5, H},
		{"tie", sig(B, B, S, S), 0.5, H},
		{"empty", nil, 0.5, H},
		{"both sides clear low majority", sig(B, B, S, S), 0.3, H},
		{"invalid majority falls back", sig(B, B, B, H), 7, B},
	}
	for _, c := range cases {
		got := Consensus(c.in, c.majority)
		if got.Signal != c.want {
			t.Fatalf("%s: got %s want %s", c.name, got.Signal, c.want)
		}
		if got.BuyCount+got.SellCount+got.HoldCount != got.Total || got.Total != len(c.in) {
			t.Fatalf("%s: counts do not add up %+v", c.name, got)
		}
	}

	got := Consensus(sig(B, B, B, H), 0.5)
	if got.BuyCount != 3 || got.Total != 4 {
		t.Fatalf("unexpected counts %+v", got)
	}
}

func TestBestTieBreaks(t *testing.T) {
	res := []models.StrategyResult{
		{Name: "a", Summary: models.BacktestSummary{WinRate: 60, MaxDrawdown: 8}},
		{Name: "b", Summary: models.BacktestSummary{WinRate: 60, MaxDrawdown: 3}},
		{Name: "c", Summary: models.BacktestSummary{WinRate: 60, MaxDrawdown: 3}},
		{Name: "d", Summary: models.BacktestSummary{WinRate: 40}},
	}
	if i := Best(res); res[i].Name != "b" {
		t.Fatalf("expected b, got %s", res[i].Name)
	}
	if Best(nil) != -1 {
		t.Fatalf("empty input must return -1")
	}
}

func TestBreakoutForcedExitCountsAsLoss(t *testing.T) {
	res := Backtest(Breakout{Window: 20}, withSpike(rangeBound(20)))
	if res.Signal != models.SignalBuy || res.Price != 12 {
		t.Fatalf("expected BUY at 12, got %s at %v (%s)", res.Signal, res.Price, res.Reason)
	}
	if len(res.Trades) != 1 || !res.Trades[0].ForcedExit {
		t.Fatalf("expected one forced trade, got %+v", res.Trades)
	}
	if res.Summary.Losses != 1 || res.Summary.Wins != 0 || res.Summary.ProfitFactor != 0 {
		t.Fatalf("flat forced exit must be a loss: %+v", res.Summary)
	}
}

func TestMomentumRidesTrend(t *testing.T) {
	res := Backtest(Momentum{Period: 10, Trend: 20, Threshold: 0.02}, trending(40, 0.01))
	if res.Signal != models.SignalBuy {
		t.Fatalf("expected BUY on a steady uptrend, got %s", res.Signal)
	}
	if res.Summary.TotalTrades != 1 || res.Summary.Wins != 1 {
		t.Fatalf("expected one winning trade, got %+v", res.Summary)
	}
	if !math.IsInf(float64(res.Summary.ProfitFactor), 1) || res.Summary.WinRate != 100 {
		t.Fatalf("unexpected summary %+v", res.Summary)
	}
}

func TestBacktestTooShort(t *testing.T) {
	res := Backtest(Breakout{Window: 20}, rangeBound(5))
	if res.Signal != models.SignalHold || res.Summary.TotalTrades != 0 {
		t.Fatalf("short input must hold, got %+v", res)
	}
}

func TestAggregateShortInputIsEmptyHold(t *testing.T) {
	agg := NewAggregator()
	for _, in := range [][]models.Candle{nil, rangeBound(MinCandles - 1)} {
		out := agg.Aggregate("pool", "15m", in)
		if len(out.Results) != 0 || out.Best != nil {
			t.Fatalf("expected no results, got %d", len(out.Results))
		}
		if out.Consensus.Signal != models.SignalHold || out.Consensus.Total != 0 {
			t.Fatalf("expected HOLD consensus, got %+v", out.Consensus)
		}
	}
}

func TestAggregateSpikeConsensus(t *testing.T) {
	var observed []string
	agg := NewAggregator(WithObserver(func(rule string, _ time.Duration) { observed = append(observed, rule) }))
	out := agg.Aggregate("pool", "15m", withSpike(rangeBound(20)))

	names := agg.Rules()
	if !reflect.DeepEqual(names, []string{"momentum", "mean_reversion", "breakout", "volume_weighted"}) {
		t.Fatalf("unexpected rule order %v", names)
	}
	if !reflect.DeepEqual(observed, names) {
		t.Fatalf("observer saw %v", observed)
	}
	for i, r := range out.Results {
		if r.Name != names[i] {
			t.Fatalf("results out of declaration order: %v", r.Name)
		}
	}
	if out.Consensus.BuyCount != 3 || out.Consensus.Signal != models.SignalBuy {
		t.Fatalf("expected BUY with 3 votes, got %+v", out.Consensus)
	}
	for _, name := range []int{0, 2, 3} {
		if out.Results[name].Signal != models.SignalBuy {
			t.Fatalf("%s should buy the spike: %s", out.Results[name].Name, out.Results[name].Reason)
		}
	}
	if !out.ComputedAt.Equal(t0.Add(20 * 15 * time.Minute)) {
		t.Fatalf("computed_at should be the last bucket, got %v", out.ComputedAt)
	}
}

func TestAggregateIsDeterministic(t *testing.T) {
	agg := NewAggregator()
	candles := randomWalk(200, 7)
	a := agg.Aggregate("pool", "5m", candles)
	b := agg.Aggregate("pool", "5m", candles)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("aggregate is not deterministic")
	}
}

func TestSummaryInvariantsOnRandomWalks(t *testing.T) {
	agg := NewAggregator()
	for seed := int64(1); seed <= 20; seed++ {
		out := agg.Aggregate("pool", "5m", randomWalk(150, seed))
		if len(out.Results) != 4 {
			t.Fatalf("seed %d: expected 4 results", seed)
		}
		for _, r := range out.Results {
			s := r.Summary
			if s.WinRate < 0 || s.WinRate > 100 {
				t.Fatalf("seed %d %s: win rate %v", seed, r.Name, s.WinRate)
			}
			if s.TotalTrades != s.Wins+s.Losses || s.TotalTrades != len(r.Trades) {
				t.Fatalf("seed %d %s: counts %+v with %d trades", seed, r.Name, s, len(r.Trades))
			}
			var profit, loss float64
			for _, tr := range r.Trades {
				if tr.ReturnPct > 0 {
					profit += tr.ReturnPct
				} else {
					loss -= tr.ReturnPct
				}
			}
			isInf := math.IsInf(float64(s.ProfitFactor), 1)
			if isInf != (loss == 0 && profit > 0) {
				t.Fatalf("seed %d %s: profit factor %v with profit %v loss %v", seed, r.Name, s.ProfitFactor, profit, loss)
			}
			if (s.ProfitFactor == 0) != (profit == 0) {
				t.Fatalf("seed %d %s: zero profit factor mismatch", seed, r.Name)
			}
			if s.MaxDrawdown < 0 || s.MaxDrawdown > 100 {
				t.Fatalf("seed %d %s: drawdown %v", seed, r.Name, s.MaxDrawdown)
			}
		}
		if out.Volatility <= 0 {
			t.Fatalf("seed %d: random walk must have volatility", seed)
		}
	}
}

func TestWindowDropsOutOfOrderCandles(t *testing.T) {
	in := rangeBound(3)
	in = append(in, in[1])
	w := newWindow(in)
	if w.Len() != 3 {
		t.Fatalf("expected duplicate to be dropped, got %d", w.Len())
	}

	undated := []models.Candle{{Close: 1}, {Close: 2}, {Close: 3}}
	if newWindow(undated).Len() != 3 {
		t.Fatalf("undated candles must keep their order")
	}
}
