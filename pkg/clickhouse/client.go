// Package clickhouse opens the analytics store used for candle history and
// backtest records.
package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	ch "github.com/ClickHouse/clickhouse-go/v2"
)

// Client is a database/sql pool over the clickhouse-go driver.
type Client struct {
	db  *sql.DB
	cfg Config
}

// NewClient opens the pool and fails fast when the server does not answer
// within DialTimeout.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Host == "" {
		return nil, errors.New("clickhouse: host is required")
	}
	cfg.setDefaults()

	db := ch.OpenDB(cfg.options())
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		var ex *ch.Exception
		if errors.As(err, &ex) {
			return nil, fmt.Errorf("clickhouse ping: code %d: %s", ex.Code, ex.Message)
		}
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	return &Client{db: db, cfg: cfg}, nil
}

func (c *Client) DB() *sql.DB      { return c.db }
func (c *Client) Database() string { return c.cfg.Database }

func (c *Client) Close() error { return c.db.Close() }

// InitSchema runs DDL statements in order. They must be idempotent.
func (c *Client) InitSchema(ctx context.Context, stmts ...string) error {
	for i, stmt := range stmts {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}

// InsertBatch sends rows as one block: the driver buffers every Exec of a
// prepared INSERT inside a transaction and flushes on Commit.
func (c *Client) InsertBatch(ctx context.Context, query string, rows [][]any) (err error) {
	if len(rows) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.WriteTimeout)
	defer cancel()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	defer stmt.Close()
	for i, row := range rows {
		if _, err = stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("append row %d: %w", i, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}
