package util

import (
	"testing"
	"time"
)

func TestParseTimeframe(t *testing.T) {
	cases := map[string]time.Duration{
		"1m":  time.Minute,
		"15m": 15 * time.Minute,
		"4H":  4 * time.Hour,
		"1d":  24 * time.Hour,
	}
	for in, want := range cases {
		got, err := ParseTimeframe(in)
		if err != nil || got != want {
			t.Fatalf("%s: got %v, %v", in, got, err)
		}
	}
	for _, bad := range []string{"", "abc", "-5m"} {
		if _, err := ParseTimeframe(bad); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}

func TestOHLCVPeriod(t *testing.T) {
	cases := []struct {
		tf     string
		period string
		agg    int
	}{
		{"15m", "minute", 15},
		{"4h", "hour", 4},
		{"1d", "day", 1},
		{"60m", "hour", 1},
	}
	for _, c := range cases {
		p, a, err := OHLCVPeriod(c.tf)
		if err != nil || p != c.period || a != c.agg {
			t.Fatalf("%s: got %s/%d %v", c.tf, p, a, err)
		}
	}
	if _, _, err := OHLCVPeriod("30s"); err == nil {
		t.Fatalf("expected error for sub-minute timeframe")
	}
}

func TestSplitCSV(t *testing.T) {
	got := SplitCSV(" a, ,b,")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected %v", got)
	}
}
