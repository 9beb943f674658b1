// Package features derives statistics from candle windows.
package features

import (
	"math"
	"time"

	"Jarvis/internal/domain/models"
	"Jarvis/pkg/util"
)

const year = 365 * 24 * time.Hour

// LogReturns returns ln(close[i]/close[i-1]). A pair with a non-positive
// close yields 0.
func LogReturns(candles []models.Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}
	out := make([]float64, len(candles)-1)
	for i := range out {
		a, b := candles[i].Close, candles[i+1].Close
		if a > 0 && b > 0 {
			out[i] = math.Log(b / a)
		}
	}
	return out
}

// Volatility annualizes the sample standard deviation of the last window
// log returns of candles. It is 0 until window returns exist.
func Volatility(candles []models.Candle, window int, tf string) float64 {
	rs := LogReturns(candles)
	if window < 2 || len(rs) < window {
		return 0
	}
	// Welford keeps the variance stable for tiny returns.
	var mean, m2 float64
	for i, r := range rs[len(rs)-window:] {
		d := r - mean
		mean += d / float64(i+1)
		m2 += d * (r - mean)
	}
	return math.Sqrt(m2 / float64(window-1) * BarsPerYear(tf))
}

// BarsPerYear counts tf bars in 365 days. Unparseable timeframes count as
// one minute.
func BarsPerYear(tf string) float64 {
	d, err := util.ParseTimeframe(tf)
	if err != nil || d <= 0 {
		d = time.Minute
	}
	return float64(year) / float64(d)
}
