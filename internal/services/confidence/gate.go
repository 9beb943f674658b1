// Package confidence implements the trading confidence gate: a latched
// circuit breaker driven by the relative width of an oracle's price band.
package confidence

import (
	"errors"
	"fmt"
	"math"
	"time"

	"Jarvis/internal/domain/models"
)

// Thresholds are ratio bounds, i.e. confidence / price.
type Thresholds struct {
	TightMax  float64
	NormalMax float64
	WideMax   float64
	// Trip latches the breaker when the ratio rises above it.
	Trip float64
	// Recovery releases the breaker once a reliable oracle ratio falls below
	// it. Manual samples never release it.
	Recovery float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{TightMax: 0.002, NormalMax: 0.01, WideMax: 0.03, Trip: 0.03, Recovery: 0.01}
}

// Validate requires ordered tiers and a real hysteresis band.
func (t Thresholds) Validate() error {
	if !(t.TightMax > 0 && t.TightMax < t.NormalMax && t.NormalMax < t.WideMax) {
		return fmt.Errorf("confidence: tier thresholds must satisfy 0 < tight < normal < wide")
	}
	if t.Recovery <= 0 {
		return errors.New("confidence: recovery threshold must be positive")
	}
	if t.Recovery >= t.Trip {
		return fmt.Errorf("confidence: recovery %.4f must be below trip %.4f", t.Recovery, t.Trip)
	}
	return nil
}

// Tier classifies a ratio. Invalid ratios are loading.
func (t Thresholds) Tier(ratio float64) models.Tier {
	switch {
	case math.IsNaN(ratio) || math.IsInf(ratio, 0) || ratio < 0:
		return models.TierLoading
	case ratio <= t.TightMax:
		return models.TierTight
	case ratio <= t.NormalMax:
		return models.TierNormal
	case ratio <= t.WideMax:
		return models.TierWide
	}
	return models.TierUnusable
}

// Gate holds the breaker latch for one mint. It is not safe for concurrent
// use; Registry serializes access.
type Gate struct {
	th        Thresholds
	tripped   bool
	reason    string
	trippedAt time.Time
	last      models.ConfidenceState
	seen      bool
}

func NewGate(th Thresholds) (*Gate, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}
	return &Gate{th: th}, nil
}

// Evaluate folds one sample into the latch and returns the verdict.
// A sample without a usable price or confidence reports loading and is
// never safe; it leaves the latch as it was.
func (g *Gate) Evaluate(s models.PriceSample) models.ConfidenceState {
	now := s.At
	if now.IsZero() {
		now = time.Now()
	}
	st := models.ConfidenceState{
		Mint:       s.Mint,
		Price:      s.Price,
		Confidence: s.Confidence,
		Source:     s.Source,
		UpdatedAt:  now,
	}

	if !usable(s.Price) || !usable(s.Confidence) {
		st.Tier = models.TierLoading
		st.Reason = "waiting for price and confidence data"
		st.IsTripped = g.tripped
		if g.tripped {
			st.Reason = g.reason
			st.TrippedAt = g.trippedAtPtr()
		}
		g.last, g.seen = st, true
		return st
	}

	ratio := s.Confidence / s.Price
	st.Ratio = ratio
	st.Tier = g.th.Tier(ratio)
	st.IsVolatile = ratio > g.th.NormalMax

	switch {
	case !s.Reliable:
		g.trip(now, fmt.Sprintf("unreliable price source %q", sourceName(s.Source)))
	case ratio > g.th.Trip:
		g.trip(now, fmt.Sprintf("confidence ratio %.4f above trip threshold %.4f", ratio, g.th.Trip))
	case g.tripped && ratio < g.th.Recovery && s.Source != models.SourceManual:
		g.tripped = false
		g.reason = ""
		g.trippedAt = time.Time{}
	}

	st.IsTripped = g.tripped
	if g.tripped {
		st.Reason = g.reason
		st.TrippedAt = g.trippedAtPtr()
		switch {
		case s.Source == models.SourceManual && ratio <= g.th.Trip && s.Reliable:
			st.Reason = g.reason + "; manual samples cannot release the breaker"
		case ratio <= g.th.Trip && s.Reliable:
			st.Reason = fmt.Sprintf("%s; holding until ratio < %.4f", g.reason, g.th.Recovery)
		}
	} else if st.IsVolatile {
		st.Reason = fmt.Sprintf("volatile: ratio %.4f above %.4f", ratio, g.th.NormalMax)
	}
	st.IsSafeToTrade = !st.IsTripped && !st.IsVolatile && st.Tier != models.TierLoading
	g.last, g.seen = st, true
	return st
}

// State returns the last verdict, or a loading state before any sample.
func (g *Gate) State() (models.ConfidenceState, bool) {
	return g.last, g.seen
}

func (g *Gate) Tripped() bool { return g.tripped }

func (g *Gate) trip(now time.Time, reason string) {
	if !g.tripped {
		g.trippedAt = now
	}
	g.tripped = true
	g.reason = reason
}

func (g *Gate) trippedAtPtr() *time.Time {
	t := g.trippedAt
	return &t
}

func usable(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

func sourceName(s models.PriceSource) string {
	if s == "" {
		return "unknown"
	}
	return string(s)
}
