package util

import (
	"fmt"
	"strings"
	"time"

	str2duration "github.com/xhit/go-str2duration/v2"
)

// ParseTimeframe converts candle timeframes such as "1m", "15m", "4h" or
// "1d" into a duration.
func ParseTimeframe(tf string) (time.Duration, error) {
	tf = strings.TrimSpace(strings.ToLower(tf))
	if tf == "" {
		return 0, fmt.Errorf("empty timeframe")
	}
	d, err := str2duration.ParseDuration(tf)
	if err != nil {
		return 0, fmt.Errorf("parse timeframe %q: %w", tf, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeframe %q must be positive", tf)
	}
	return d, nil
}

// OHLCVPeriod splits a timeframe into the period and aggregate pair used by
// OHLCV endpoints: minute, hour or day with an integer multiplier.
func OHLCVPeriod(tf string) (period string, aggregate int, err error) {
	d, err := ParseTimeframe(tf)
	if err != nil {
		return "", 0, err
	}
	switch {
	case d%(24*time.Hour) == 0:
		return "day", int(d / (24 * time.Hour)), nil
	case d%time.Hour == 0:
		return "hour", int(d / time.Hour), nil
	case d%time.Minute == 0:
		return "minute", int(d / time.Minute), nil
	}
	return "", 0, fmt.Errorf("timeframe %q is finer than one minute", tf)
}
