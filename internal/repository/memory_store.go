package repository

import (
	"context"
	"sort"
	"sync"

	"Jarvis/internal/domain/models"
	domrepo "Jarvis/internal/domain/repository"
)

// MemoryCandleStore is the candle store used when ClickHouse is disabled.
// It keeps at most limit candles per pool and timeframe.
type MemoryCandleStore struct {
	mu  sync.RWMutex
	m   map[string][]models.Candle
	max int
}

func NewMemoryCandleStore(limit int) *MemoryCandleStore {
	if limit <= 0 {
		limit = 5000
	}
	return &MemoryCandleStore{m: make(map[string][]models.Candle), max: limit}
}

func candleKey(pool string, tf domrepo.Timeframe) string { return pool + "|" + string(tf) }

// SaveCandles merges candles by bucket; a newer write for a bucket wins.
func (s *MemoryCandleStore) SaveCandles(_ context.Context, pool string, tf domrepo.Timeframe, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := candleKey(pool, tf)
	byBucket := make(map[int64]models.Candle, len(s.m[k])+len(candles))
	for _, c := range s.m[k] {
		byBucket[c.Bucket.UnixNano()] = c
	}
	for _, c := range candles {
		c.Symbol = pool
		byBucket[c.Bucket.UnixNano()] = c
	}
	merged := make([]models.Candle, 0, len(byBucket))
	for _, c := range byBucket {
		merged = append(merged, c)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Bucket.Before(merged[j].Bucket) })
	if len(merged) > s.max {
		merged = merged[len(merged)-s.max:]
	}
	s.m[k] = merged
	return nil
}

func (s *MemoryCandleStore) GetLatestNCandles(_ context.Context, pool string, n int, tf domrepo.Timeframe) ([]models.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cs := s.m[candleKey(pool, tf)]
	if n > 0 && len(cs) > n {
		cs = cs[len(cs)-n:]
	}
	out := make([]models.Candle, len(cs))
	copy(out, cs)
	return out, nil
}

// MemoryBacktestStore keeps the most recent backtests in process.
type MemoryBacktestStore struct {
	mu   sync.RWMutex
	recs []models.BacktestRecord
	max  int
}

func NewMemoryBacktestStore(limit int) *MemoryBacktestStore {
	if limit <= 0 {
		limit = 500
	}
	return &MemoryBacktestStore{max: limit}
}

func (s *MemoryBacktestStore) SaveBacktest(_ context.Context, rec models.BacktestRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.recs {
		if s.recs[i].ID == rec.ID {
			s.recs[i] = rec
			return nil
		}
	}
	s.recs = append(s.recs, rec)
	if len(s.recs) > s.max {
		s.recs = s.recs[len(s.recs)-s.max:]
	}
	return nil
}

// ListBacktests returns newest first, optionally filtered by pool.
func (s *MemoryBacktestStore) ListBacktests(_ context.Context, pool string, limit int) ([]models.BacktestRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.BacktestRecord, 0, len(s.recs))
	for i := len(s.recs) - 1; i >= 0; i-- {
		if pool != "" && s.recs[i].Pool != pool {
			continue
		}
		out = append(out, s.recs[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

var (
	_ domrepo.CandleStore   = (*MemoryCandleStore)(nil)
	_ domrepo.CandleStore   = (*CHCandleStore)(nil)
	_ domrepo.BacktestStore = (*MemoryBacktestStore)(nil)
	_ domrepo.BacktestStore = (*CHBacktestStore)(nil)
)
