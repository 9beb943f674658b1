package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"Jarvis/internal/domain/models"
	domrepo "Jarvis/internal/domain/repository"
	pkgch "Jarvis/pkg/clickhouse"
	applogger "Jarvis/pkg/logger"
)

// CHCandleStore keeps fetched pool candles in ClickHouse. Rows are
// deduplicated on (pool, tf, bucket) by the ReplacingMergeTree engine.
type CHCandleStore struct {
	ch    *pkgch.Client
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHCandleStore(ch *pkgch.Client, l *applogger.Logger) *CHCandleStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHCandleStore{ch: ch, db: ch.DB(), table: ch.Database() + ".candles", l: l}
}

// Schema returns the DDL for the candle table.
func (s *CHCandleStore) Schema() []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            pool       String,
            tf         LowCardinality(String),
            bucket     DateTime64(3, 'UTC'),
            open       Float64,
            high       Float64,
            low        Float64,
            close      Float64,
            volume     Float64,
            inserted_at DateTime64(3, 'UTC') DEFAULT now64(3)
        )
        ENGINE = ReplacingMergeTree(inserted_at)
        PARTITION BY toYYYYMM(bucket)
        ORDER BY (pool, tf, bucket)
    `, s.table)}
}

func (s *CHCandleStore) SaveCandles(ctx context.Context, pool string, tf domrepo.Timeframe, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	start := time.Now()
	rows := make([][]any, 0, len(candles))
	for _, c := range candles {
		rows = append(rows, []any{pool, string(tf), c.Bucket.UTC(), c.Open, c.High, c.Low, c.Close, c.Volume})
	}
	q := fmt.Sprintf("INSERT INTO %s (pool, tf, bucket, open, high, low, close, volume)", s.table)
	if err := s.ch.InsertBatch(ctx, q, rows); err != nil {
		s.l.Error("clickhouse save_candles error",
			applogger.String("pool", pool),
			applogger.String("tf", string(tf)),
			applogger.Int("rows", len(rows)),
			applogger.Error(err),
		)
		return fmt.Errorf("save candles: %w", err)
	}
	s.l.Debug("clickhouse save_candles ok",
		applogger.String("pool", pool),
		applogger.Int("rows", len(rows)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func (s *CHCandleStore) GetLatestNCandles(ctx context.Context, pool string, n int, tf domrepo.Timeframe) ([]models.Candle, error) {
	start := time.Now()
	const qtpl = `
        SELECT bucket, pool, open, high, low, close, volume
        FROM %s FINAL
        WHERE pool = ? AND tf = ?
        ORDER BY bucket DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.table), pool, string(tf), n)
	if err != nil {
		s.l.Error("clickhouse latest_candles query error",
			applogger.String("pool", pool),
			applogger.String("tf", string(tf)),
			applogger.Int("limit", n),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("get latest candles: %w", err)
	}
	defer rows.Close()

	tmp := make([]models.Candle, 0, n)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Bucket, &c.Symbol, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		tmp = append(tmp, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	reverseCandles(tmp)
	s.l.Debug("clickhouse latest_candles ok",
		applogger.String("pool", pool),
		applogger.String("tf", string(tf)),
		applogger.Int("rows", len(tmp)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return tmp, nil
}

func reverseCandles(cs []models.Candle) {
	for i, j := 0, len(cs)-1; i < j; i, j = i+1, j-1 {
		cs[i], cs[j] = cs[j], cs[i]
	}
}
