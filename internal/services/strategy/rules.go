package strategy

import (
	"fmt"

	"Jarvis/internal/domain/models"

	"github.com/sdcoffey/techan"
)

// Rule is a named signal rule. Prepare binds it to a window and returns an
// evaluator that classifies any bar at or after Lookback.
type Rule interface {
	Name() string
	Lookback() int
	Prepare(w *window) Evaluator
}

// Evaluator classifies bar i and explains why.
type Evaluator func(i int) (models.Signal, string)

// Default returns the built-in rules in declaration order.
func Default() []Rule {
	return []Rule{
		Momentum{Period: 10, Trend: 20, Threshold: 0.02},
		MeanReversion{Window: 20, Sigma: 2, RSIPeriod: 14, Oversold: 30, Overbought: 70},
		Breakout{Window: 20},
		VolumeWeighted{Window: 20, Spike: 1.5},
	}
}

// Momentum buys a rate of change above Threshold confirmed by the close
// sitting above its trend SMA, and sells the mirror case.
type Momentum struct {
	Period    int
	Trend     int
	Threshold float64
}

func (Momentum) Name() string { return "momentum" }

func (m Momentum) Lookback() int { return max(m.Period, m.Trend-1) }

func (m Momentum) Prepare(w *window) Evaluator {
	sma := techan.NewSimpleMovingAverage(techan.NewClosePriceIndicator(w.series), m.Trend)
	return func(i int) (models.Signal, string) {
		base := w.close(i - m.Period)
		if base <= 0 {
			return models.SignalHold, "no reference price"
		}
		c := w.close(i)
		roc := (c - base) / base
		avg := sma.Calculate(i).Float()
		switch {
		case roc > m.Threshold && c > avg:
			return models.SignalBuy, fmt.Sprintf("ROC(%d) %+.2f%% with close above SMA(%d)", m.Period, roc*100, m.Trend)
		case roc < -m.Threshold && c < avg:
			return models.SignalSell, fmt.Sprintf("ROC(%d) %+.2f%% with close below SMA(%d)", m.Period, roc*100, m.Trend)
		}
		return models.SignalHold, fmt.Sprintf("ROC(%d) %+.2f%% inside band", m.Period, roc*100)
	}
}

// MeanReversion fades closes outside the Bollinger bands when RSI agrees.
type MeanReversion struct {
	Window     int
	Sigma      float64
	RSIPeriod  int
	Oversold   float64
	Overbought float64
}

func (MeanReversion) Name() string { return "mean_reversion" }

func (m MeanReversion) Lookback() int { return max(m.Window-1, m.RSIPeriod) }

func (m MeanReversion) Prepare(w *window) Evaluator {
	closes := techan.NewClosePriceIndicator(w.series)
	upper := techan.NewBollingerUpperBandIndicator(closes, m.Window, m.Sigma)
	lower := techan.NewBollingerLowerBandIndicator(closes, m.Window, m.Sigma)
	rsi := techan.NewRelativeStrengthIndexIndicator(closes, m.RSIPeriod)
	return func(i int) (models.Signal, string) {
		c := w.close(i)
		lo, hi := lower.Calculate(i).Float(), upper.Calculate(i).Float()
		if c >= lo && c <= hi {
			return models.SignalHold, "close within bands"
		}
		// RSI only matters once the close has left the bands
		r := rsi.Calculate(i).Float()
		switch {
		case c < lo && r < m.Oversold:
			return models.SignalBuy, fmt.Sprintf("close below lower band %.6g, RSI %.1f", lo, r)
		case c > hi && r > m.Overbought:
			return models.SignalSell, fmt.Sprintf("close above upper band %.6g, RSI %.1f", hi, r)
		}
		return models.SignalHold, fmt.Sprintf("outside bands but RSI %.1f not extreme", r)
	}
}

// Breakout trades closes beyond the previous Window bars' range.
type Breakout struct {
	Window int
}

func (Breakout) Name() string { return "breakout" }

func (b Breakout) Lookback() int { return b.Window }

func (b Breakout) Prepare(w *window) Evaluator {
	highest := techan.NewMaximumValueIndicator(techan.NewHighPriceIndicator(w.series), b.Window)
	lowest := techan.NewMinimumValueIndicator(techan.NewLowPriceIndicator(w.series), b.Window)
	return func(i int) (models.Signal, string) {
		c := w.close(i)
		hi := highest.Calculate(i - 1).Float()
		lo := lowest.Calculate(i - 1).Float()
		switch {
		case c > hi:
			return models.SignalBuy, fmt.Sprintf("close broke %d-bar high %.6g", b.Window, hi)
		case c < lo:
			return models.SignalSell, fmt.Sprintf("close broke %d-bar low %.6g", b.Window, lo)
		}
		return models.SignalHold, fmt.Sprintf("inside %d-bar range", b.Window)
	}
}

// VolumeWeighted follows volume spikes in the direction of the close
// relative to the rolling VWAP.
type VolumeWeighted struct {
	Window int
	Spike  float64
}

func (VolumeWeighted) Name() string { return "volume_weighted" }

func (v VolumeWeighted) Lookback() int { return v.Window }

func (v VolumeWeighted) Prepare(w *window) Evaluator {
	avgVol := techan.NewSimpleMovingAverage(techan.NewVolumeIndicator(w.series), v.Window)
	typical := techan.NewTypicalPriceIndicator(w.series)
	return func(i int) (models.Signal, string) {
		var pv, vol float64
		for j := i - v.Window + 1; j <= i; j++ {
			pv += typical.Calculate(j).Float() * w.candles[j].Volume
			vol += w.candles[j].Volume
		}
		prevAvg := avgVol.Calculate(i - 1).Float()
		if vol <= 0 || prevAvg <= 0 {
			return models.SignalHold, "no volume"
		}
		vwap := pv / vol
		ratio := w.candles[i].Volume / prevAvg
		c := w.close(i)
		if ratio <= v.Spike {
			return models.SignalHold, fmt.Sprintf("volume %.2fx average", ratio)
		}
		if c > vwap {
			return models.SignalBuy, fmt.Sprintf("volume %.2fx average, close above VWAP %.6g", ratio, vwap)
		}
		if c < vwap {
			return models.SignalSell, fmt.Sprintf("volume %.2fx average, close below VWAP %.6g", ratio, vwap)
		}
		return models.SignalHold, "volume spike at VWAP"
	}
}
