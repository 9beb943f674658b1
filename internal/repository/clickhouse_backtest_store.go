package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"Jarvis/internal/domain/models"
	pkgch "Jarvis/pkg/clickhouse"
	applogger "Jarvis/pkg/logger"
)

// CHBacktestStore keeps finished backtests. The full result is stored as
// JSON next to a few columns used for filtering.
type CHBacktestStore struct {
	ch    *pkgch.Client
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHBacktestStore(ch *pkgch.Client, l *applogger.Logger) *CHBacktestStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHBacktestStore{ch: ch, db: ch.DB(), table: ch.Database() + ".backtests", l: l}
}

func (s *CHBacktestStore) Schema() []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            id          String,
            pool        String,
            tf          LowCardinality(String),
            candles     UInt32,
            status      LowCardinality(String),
            signal      LowCardinality(String),
            best        String,
            result      String,
            error       String,
            created_at  DateTime64(3, 'UTC'),
            finished_at DateTime64(3, 'UTC')
        )
        ENGINE = ReplacingMergeTree(finished_at)
        ORDER BY (pool, created_at, id)
        TTL toDateTime(created_at) + INTERVAL 90 DAY
    `, s.table)}
}

func (s *CHBacktestStore) SaveBacktest(ctx context.Context, rec models.BacktestRecord) error {
	row, err := backtestRow(rec)
	if err != nil {
		return err
	}
	q := fmt.Sprintf("INSERT INTO %s (id, pool, tf, candles, status, signal, best, result, error, created_at, finished_at)", s.table)
	if err := s.ch.InsertBatch(ctx, q, [][]any{row}); err != nil {
		s.l.Error("clickhouse save_backtest error", applogger.String("id", rec.ID), applogger.Error(err))
		return fmt.Errorf("save backtest: %w", err)
	}
	return nil
}

// backtestRow flattens rec into the table's column order.
func backtestRow(rec models.BacktestRecord) ([]any, error) {
	var (
		signal, best string
		result       = []byte("null")
	)
	if rec.Result != nil {
		signal = string(rec.Result.Consensus.Signal)
		if rec.Result.Best != nil {
			best = rec.Result.Best.Name
		}
		b, err := json.Marshal(rec.Result)
		if err != nil {
			return nil, fmt.Errorf("encode backtest result: %w", err)
		}
		result = b
	}
	finished := rec.CreatedAt
	if rec.FinishedAt != nil {
		finished = *rec.FinishedAt
	}
	return []any{
		rec.ID, rec.Pool, rec.Timeframe, uint32(max(rec.Candles, 0)), string(rec.Status),
		signal, best, string(result), rec.Error, rec.CreatedAt.UTC(), finished.UTC(),
	}, nil
}

func (s *CHBacktestStore) ListBacktests(ctx context.Context, pool string, limit int) ([]models.BacktestRecord, error) {
	q := fmt.Sprintf(`
        SELECT id, pool, tf, candles, status, result, error, created_at, finished_at
        FROM %s FINAL
        WHERE (? = '' OR pool = ?)
        ORDER BY created_at DESC
        LIMIT ?
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, pool, pool, limit)
	if err != nil {
		s.l.Error("clickhouse list_backtests query error", applogger.String("pool", pool), applogger.Error(err))
		return nil, fmt.Errorf("list backtests: %w", err)
	}
	defer rows.Close()

	out := make([]models.BacktestRecord, 0, limit)
	for rows.Next() {
		var (
			rec      models.BacktestRecord
			candles  uint32
			status   string
			result   string
			finished time.Time
		)
		if err := rows.Scan(&rec.ID, &rec.Pool, &rec.Timeframe, &candles, &status, &result, &rec.Error, &rec.CreatedAt, &finished); err != nil {
			return nil, fmt.Errorf("scan backtest: %w", err)
		}
		rec.Candles = int(candles)
		rec.Status = models.BacktestStatus(status)
		rec.FinishedAt = &finished
		if result != "" && result != "null" {
			var res models.AggregateResult
			if err := json.Unmarshal([]byte(result), &res); err != nil {
				s.l.Warn("backtest result unreadable", applogger.String("id", rec.ID), applogger.Error(err))
			} else {
				rec.Result = &res
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
