// Package state keeps the terminal's persisted blobs: positions, snipe
// history, algo config and pick performance.
package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"Jarvis/internal/domain/models"
	"Jarvis/pkg/cache"
	"Jarvis/pkg/logger"
)

const (
	KeyPositions       = "positions"
	KeySnipeHistory    = "snipe_history"
	KeyAlgoConfig      = "algo_config"
	KeyPickPerformance = "pick_performance"
)

const (
	maxSnipes = 500
	maxPicks  = 1000

	leaseTTL     = 5 * time.Second
	leaseRetries = 20
	leaseBackoff = 25 * time.Millisecond
)

var hundred = decimal.NewFromInt(100)

type loader func(ctx context.Context, key string, dest interface{}) (bool, error)

// Store reads and writes the blobs through the cache layer. A missing or
// unreadable blob reads as its default.
type Store struct {
	c   cache.Service
	log *logger.Logger
	mu  sync.Mutex
	now func() time.Time
}

func NewStore(c cache.Service, l *logger.Logger) *Store {
	if l == nil {
		l = logger.Nop()
	}
	return &Store{c: c, log: l, now: time.Now}
}

// load decodes key into dest. It reports false when the default should be
// used instead.
func (s *Store) load(ctx context.Context, key string, dest interface{}) (bool, error) {
	return s.decodeBlob(ctx, key, s.c.Get(ctx, key, dest))
}

// loadFresh is load past any local cache layer. Writers holding a lease use
// it so they append to what other instances last wrote.
func (s *Store) loadFresh(ctx context.Context, key string, dest interface{}) (bool, error) {
	return s.decodeBlob(ctx, key, cache.GetFresh(ctx, s.c, key, dest))
}

func (s *Store) decodeBlob(ctx context.Context, key string, err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, cache.ErrCacheMiss):
		return false, nil
	case ctx.Err() != nil:
		return false, ctx.Err()
	}
	s.log.Warn("state blob unreadable, using defaults", logger.String("key", key), logger.Error(err))
	return false, nil
}

// withLease runs fn while holding the cache lease for key, so appends from
// other instances sharing Redis are not lost.
func (s *Store) withLease(ctx context.Context, key string, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var unlock cache.Unlock
	for i := 0; ; i++ {
		var err error
		unlock, err = s.c.TryLock(ctx, "state:"+key, leaseTTL)
		if err == nil {
			break
		}
		if !errors.Is(err, cache.ErrLockHeld) || i >= leaseRetries {
			return fmt.Errorf("lease %s: %w", key, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(leaseBackoff):
		}
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn("release state lease", logger.String("key", key), logger.Error(err))
		}
	}()
	return fn()
}

func (s *Store) save(ctx context.Context, key string, v interface{}) error {
	if err := s.c.Set(ctx, key, v, 0); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Positions returns the stored positions with PnL filled in.
func (s *Store) Positions(ctx context.Context) ([]models.Position, error) {
	var ps []models.Position
	if ok, err := s.load(ctx, KeyPositions, &ps); err != nil {
		return nil, err
	} else if !ok || ps == nil {
		return []models.Position{}, nil
	}
	for i := range ps {
		WithPnL(&ps[i])
	}
	return ps, nil
}

// SavePositions replaces the stored positions.
func (s *Store) SavePositions(ctx context.Context, ps []models.Position) ([]models.Position, error) {
	out := make([]models.Position, len(ps))
	now := s.now().UTC()
	for i, p := range ps {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.OpenedAt.IsZero() {
			p.OpenedAt = now
		}
		WithPnL(&p)
		out[i] = p
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.save(ctx, KeyPositions, out); err != nil {
		return nil, err
	}
	return out, nil
}

// WithPnL computes PnL = (current - entry) * amount. A position without a
// current price is marked at entry.
func WithPnL(p *models.Position) {
	cur := p.CurrentPrice
	if cur.IsZero() {
		cur = p.EntryPrice
	}
	p.PnL = cur.Sub(p.EntryPrice).Mul(p.Amount)
	p.PnLPct = 0
	if p.EntryPrice.IsPositive() {
		p.PnLPct = cur.Sub(p.EntryPrice).Div(p.EntryPrice).Mul(hundred).Round(4).InexactFloat64()
	}
}

func (s *Store) Snipes(ctx context.Context) ([]models.SnipeRecord, error) {
	return s.snipes(ctx, s.load)
}

func (s *Store) snipes(ctx context.Context, load loader) ([]models.SnipeRecord, error) {
	var rs []models.SnipeRecord
	if ok, err := load(ctx, KeySnipeHistory, &rs); err != nil {
		return nil, err
	} else if !ok || rs == nil {
		return []models.SnipeRecord{}, nil
	}
	return rs, nil
}

// AddSnipe prepends rec to the history, keeping the newest entries.
func (s *Store) AddSnipe(ctx context.Context, rec models.SnipeRecord) (models.SnipeRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.At.IsZero() {
		rec.At = s.now().UTC()
	}
	err := s.withLease(ctx, KeySnipeHistory, func() error {
		rs, err := s.snipes(ctx, s.loadFresh)
		if err != nil {
			return err
		}
		rs = append([]models.SnipeRecord{rec}, rs...)
		if len(rs) > maxSnipes {
			rs = rs[:maxSnipes]
		}
		return s.save(ctx, KeySnipeHistory, rs)
	})
	return rec, err
}

func (s *Store) AlgoConfig(ctx context.Context) (models.AlgoConfig, error) {
	cfg := models.DefaultAlgoConfig()
	var stored models.AlgoConfig
	ok, err := s.load(ctx, KeyAlgoConfig, &stored)
	if err != nil {
		return cfg, err
	}
	if ok {
		cfg = stored
	}
	return cfg, nil
}

func (s *Store) SaveAlgoConfig(ctx context.Context, cfg models.AlgoConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, KeyAlgoConfig, cfg)
}

func (s *Store) Picks(ctx context.Context) ([]models.PickPerformance, error) {
	return s.picks(ctx, s.load)
}

func (s *Store) picks(ctx context.Context, load loader) ([]models.PickPerformance, error) {
	var ps []models.PickPerformance
	if ok, err := load(ctx, KeyPickPerformance, &ps); err != nil {
		return nil, err
	} else if !ok || ps == nil {
		return []models.PickPerformance{}, nil
	}
	return ps, nil
}

// AddPick records a pick. ReturnPct is derived from the pick and current
// price.
func (s *Store) AddPick(ctx context.Context, p models.PickPerformance) (models.PickPerformance, error) {
	if p.PickedAt.IsZero() {
		p.PickedAt = s.now().UTC()
	}
	if p.CurrentPrice == 0 {
		p.CurrentPrice = p.PickPrice
	}
	if p.PickPrice > 0 {
		p.ReturnPct = decimal.NewFromFloat(p.CurrentPrice).
			Sub(decimal.NewFromFloat(p.PickPrice)).
			Div(decimal.NewFromFloat(p.PickPrice)).
			Mul(hundred).Round(4).InexactFloat64()
	}
	err := s.withLease(ctx, KeyPickPerformance, func() error {
		ps, err := s.picks(ctx, s.loadFresh)
		if err != nil {
			return err
		}
		ps = append(ps, p)
		if len(ps) > maxPicks {
			ps = ps[len(ps)-maxPicks:]
		}
		return s.save(ctx, KeyPickPerformance, ps)
	})
	return p, err
}
