package market

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"Jarvis/internal/domain/models"
	"Jarvis/pkg/util"
)

// GeckoTerminal serves pool OHLCV candles.
type GeckoTerminal struct {
	*HTTPServiceBase
}

func NewGeckoTerminal(base *HTTPServiceBase) *GeckoTerminal {
	return &GeckoTerminal{HTTPServiceBase: base}
}

type geckoOHLCVResponse struct {
	Data struct {
		Attributes struct {
			OHLCVList [][]float64 `json:"ohlcv_list"`
		} `json:"attributes"`
	} `json:"data"`
}

const geckoMaxLimit = 1000

// Candles returns up to n candles for pool, oldest first.
func (g *GeckoTerminal) Candles(ctx context.Context, pool, tf string, n int) ([]models.Candle, error) {
	period, aggregate, err := util.OHLCVPeriod(tf)
	if err != nil {
		return nil, err
	}
	if n <= 0 || n > geckoMaxLimit {
		n = geckoMaxLimit
	}
	q := url.Values{}
	q.Set("aggregate", strconv.Itoa(aggregate))
	q.Set("limit", strconv.Itoa(n))

	var resp geckoOHLCVResponse
	path := fmt.Sprintf("/pools/%s/ohlcv/%s", url.PathEscape(pool), period)
	if err := g.GetJSONWithRetry(ctx, path, q, &resp, 2); err != nil {
		return nil, err
	}
	return parseOHLCV(pool, resp.Data.Attributes.OHLCVList), nil
}

// parseOHLCV converts [ts, o, h, l, c, v] rows and sorts them ascending.
// Rows with fewer than six fields are skipped.
func parseOHLCV(pool string, rows [][]float64) []models.Candle {
	out := make([]models.Candle, 0, len(rows))
	for _, r := range rows {
		if len(r) < 6 {
			continue
		}
		out = append(out, models.Candle{
			Bucket: time.Unix(int64(r[0]), 0).UTC(),
			Symbol: pool,
			Open:   r[1],
			High:   r[2],
			Low:    r[3],
			Close:  r[4],
			Volume: r[5],
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Bucket.Before(out[j].Bucket) })
	return out
}
