package strategy

import (
	"time"

	"Jarvis/internal/domain/models"

	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"
)

// MinCandles is the shortest window every rule can evaluate at least once.
const MinCandles = 21

// window is a techan series plus the candles it accepted, index aligned.
type window struct {
	series  *techan.TimeSeries
	candles []models.Candle
}

// newWindow loads candles into a techan series. Candles that do not start
// after the previous accepted one are dropped, as techan would reject them.
func newWindow(candles []models.Candle) *window {
	w := &window{series: techan.NewTimeSeries(), candles: make([]models.Candle, 0, len(candles))}
	for i, c := range candles {
		start := c.Bucket
		if start.IsZero() {
			// undated input keeps its order
			start = time.Unix(int64(i), 0)
		}
		tc := techan.NewCandle(techan.NewTimePeriod(start, 0))
		tc.OpenPrice = big.NewDecimal(c.Open)
		tc.ClosePrice = big.NewDecimal(c.Close)
		tc.MaxPrice = big.NewDecimal(c.High)
		tc.MinPrice = big.NewDecimal(c.Low)
		tc.Volume = big.NewDecimal(c.Volume)
		if len(w.candles) > 0 && !start.After(w.series.LastCandle().Period.Start) {
			continue
		}
		if w.series.AddCandle(tc) {
			w.candles = append(w.candles, c)
		}
	}
	return w
}

func (w *window) Len() int { return len(w.candles) }

func (w *window) close(i int) float64 { return w.candles[i].Close }
