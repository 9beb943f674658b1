package features

import (
	"math"
	"testing"

	"Jarvis/internal/domain/models"
)

func closes(vs ...float64) []models.Candle {
	out := make([]models.Candle, len(vs))
	for i, v := range vs {
		out[i].Close = v
	}
	return out
}

func TestLogReturnsZeroForBadPrices(t *testing.T) {
	got := LogReturns(closes(1, math.E, 0, 2))
	if len(got) != 3 || math.Abs(got[0]-1) > 1e-12 || got[1] != 0 || got[2] != 0 {
		t.Fatalf("returns = %v", got)
	}
	if LogReturns(closes(1)) != nil {
		t.Fatal("single candle must have no returns")
	}
}

func TestVolatility(t *testing.T) {
	if v := Volatility(closes(1, 1.01), 2, "1m"); v != 0 {
		t.Fatalf("short window = %v", v)
	}
	if v := Volatility(closes(1, 2, 4, 8), 3, "1h"); math.Abs(v) > 1e-9 {
		t.Fatalf("constant growth must have zero volatility, got %v", v)
	}
	// returns +ln2, -ln2: sample variance 2*ln2^2, one bar per year at 8760h.
	got := Volatility(closes(1, 2, 1), 2, "8760h")
	if want := math.Sqrt2 * math.Ln2; math.Abs(got-want) > 1e-12 {
		t.Fatalf("volatility = %v, want %v", got, want)
	}
}

func TestBarsPerYear(t *testing.T) {
	if got := BarsPerYear("1h"); got != 365*24 {
		t.Fatalf("1h: got %v", got)
	}
	if got := BarsPerYear("nonsense"); got != 365*24*60 {
		t.Fatalf("fallback: got %v", got)
	}
}
