package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"Jarvis/internal/domain/models"
	domrepo "Jarvis/internal/domain/repository"
	"Jarvis/pkg/cache"
	"Jarvis/pkg/logger"
	"Jarvis/pkg/queue"
)

const (
	BacktestJobType = "backtest.run"
	backtestKey     = "backtest:"
	backtestTTL     = 24 * time.Hour
	inlineTimeout   = 2 * time.Minute
)

var ErrBacktestNotFound = errors.New("backtest not found")

// Enqueuer is the producing side of the job queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) error
}

type backtestPayload struct {
	ID   string `json:"id"`
	Pool string `json:"pool"`
	TF   string `json:"tf"`
	N    int    `json:"n"`
}

// BacktestUseCase runs strategy backtests asynchronously. Jobs go through
// the Redis queue when one is configured and run in-process otherwise.
type BacktestUseCase struct {
	strategy *StrategyUseCase
	store    domrepo.BacktestStore
	status   cache.Service
	queue    Enqueuer
	pub      domrepo.EventPublisher
	metrics  domrepo.Metrics
	log      *logger.Logger
	wg       sync.WaitGroup
	now      func() time.Time
}

func NewBacktestUseCase(
	st *StrategyUseCase,
	store domrepo.BacktestStore,
	status cache.Service,
	q Enqueuer,
	pub domrepo.EventPublisher,
	metrics domrepo.Metrics,
	l *logger.Logger,
) *BacktestUseCase {
	return &BacktestUseCase{
		strategy: st,
		store:    store,
		status:   status,
		queue:    q,
		pub:      pub,
		metrics:  metrics,
		log:      l,
		now:      time.Now,
	}
}

// Enqueue records a queued backtest and schedules it.
func (uc *BacktestUseCase) Enqueue(ctx context.Context, req models.BacktestRequest) (models.BacktestRecord, error) {
	rec := models.BacktestRecord{
		ID:        uuid.NewString(),
		Pool:      req.Pool,
		Timeframe: req.TF,
		Candles:   req.N,
		Status:    models.BacktestQueued,
		CreatedAt: uc.now().UTC(),
	}
	if err := uc.saveStatus(ctx, rec); err != nil {
		return rec, err
	}
	p := backtestPayload{ID: rec.ID, Pool: req.Pool, TF: req.TF, N: req.N}
	if uc.queue != nil {
		err := uc.queue.Enqueue(ctx, BacktestJobType, p)
		if err == nil {
			return rec, nil
		}
		uc.metrics.RecordError("backtest_enqueue")
		uc.log.Warn("backtest enqueue failed, running inline", logger.String("id", rec.ID), logger.Error(err))
	}
	uc.wg.Add(1)
	go func() {
		defer uc.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), inlineTimeout)
		defer cancel()
		_ = uc.run(ctx, p)
	}()
	return rec, nil
}

// Wait blocks until in-process runs finish.
func (uc *BacktestUseCase) Wait() { uc.wg.Wait() }

// Get returns the job record for id.
func (uc *BacktestUseCase) Get(ctx context.Context, id string) (models.BacktestRecord, error) {
	var rec models.BacktestRecord
	if err := uc.status.Get(ctx, backtestKey+id, &rec); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return rec, ErrBacktestNotFound
		}
		return rec, err
	}
	return rec, nil
}

// List returns recent finished backtests, newest first.
func (uc *BacktestUseCase) List(ctx context.Context, pool string, limit int) ([]models.BacktestRecord, error) {
	recs, err := uc.store.ListBacktests(ctx, pool, limit)
	if err != nil {
		return nil, fmt.Errorf("list backtests: %w", err)
	}
	return recs, nil
}

func (uc *BacktestUseCase) run(ctx context.Context, p backtestPayload) error {
	rec, err := uc.Get(ctx, p.ID)
	if err != nil {
		rec = models.BacktestRecord{ID: p.ID, Pool: p.Pool, Timeframe: p.TF, Candles: p.N, CreatedAt: uc.now().UTC()}
	}
	if rec.Status == models.BacktestDone {
		return nil
	}
	rec.Status = models.BacktestRunning
	_ = uc.saveStatus(ctx, rec)

	start := time.Now()
	res, err := uc.strategy.Consensus(ctx, p.Pool, p.TF, p.N)
	uc.metrics.RecordLatency("backtest_job_seconds", time.Since(start).Seconds())
	finished := uc.now().UTC()
	rec.FinishedAt = &finished
	if err != nil {
		rec.Status = models.BacktestFailed
		rec.Error = err.Error()
		_ = uc.saveStatus(ctx, rec)
		return err
	}
	rec.Status = models.BacktestDone
	rec.Result = &res
	rec.Candles = res.Candles
	if err := uc.store.SaveBacktest(ctx, rec); err != nil {
		uc.metrics.RecordError("backtest_store")
		uc.log.Warn("save backtest failed", logger.String("id", rec.ID), logger.Error(err))
	}
	if err := uc.saveStatus(ctx, rec); err != nil {
		return err
	}
	uc.strategy.Publish(ctx, res)
	return nil
}

func (uc *BacktestUseCase) saveStatus(ctx context.Context, rec models.BacktestRecord) error {
	if err := uc.status.Set(ctx, backtestKey+rec.ID, rec, backtestTTL); err != nil {
		return fmt.Errorf("save backtest status: %w", err)
	}
	return nil
}

// BacktestJob is the queue consumer for backtest runs.
type BacktestJob struct {
	uc *BacktestUseCase
}

func NewBacktestJob(uc *BacktestUseCase) *BacktestJob { return &BacktestJob{uc: uc} }

func (j *BacktestJob) Type() string { return BacktestJobType }

func (j *BacktestJob) Handle(ctx context.Context, payload json.RawMessage) error {
	var p backtestPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode backtest payload: %w", err)
	}
	return j.uc.run(ctx, p)
}

var _ queue.Job = (*BacktestJob)(nil)
