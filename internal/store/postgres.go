package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"signalforge/internal/candle"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS backtest_runs (
	id BIGSERIAL PRIMARY KEY,
	symbol TEXT NOT NULL,
	interval TEXT NOT NULL,
	config_json JSONB NOT NULL,
	result_json JSONB NOT NULL,
	metrics_json JSONB NOT NULL,
	total_trades INTEGER NOT NULL,
	win_rate_pct DOUBLE PRECISION NOT NULL,
	net_pnl DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_backtest_runs_symbol ON backtest_runs(symbol);

CREATE TABLE IF NOT EXISTS series_cache (
	symbol TEXT NOT NULL,
	interval TEXT NOT NULL,
	bars_json JSONB NOT NULL,
	saved_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (symbol, interval)
);
`

// PostgresConfig mirrors the teacher's database.Config field set
// (internal/database/db.go).
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func (c PostgresConfig) dsn() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// PostgresStore is the upscale Store backend, grounded on
// koshedutech-binance-trading-app/internal/database's db.go
// (pgxpool.Config tuning: MaxConns/MinConns/MaxConnLifetime) and
// repository_backtest.go's SaveBacktestResult transaction shape,
// collapsed onto the same two-JSONB-column schema SQLiteStore uses so
// the two backends stay interchangeable behind the Store interface.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to Postgres, tunes the pool the way the
// teacher's NewDB does, and runs the migration above.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("store: parse postgres config: %w", err)
	}
	poolCfg.MaxConns = 25
	poolCfg.MinConns = 5
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("store: create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: migrate postgres schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) SaveBacktestRun(ctx context.Context, run BacktestRun) (int64, error) {
	resultJSON, err := json.Marshal(run.Result)
	if err != nil {
		return 0, fmt.Errorf("store: marshal result: %w", err)
	}
	metricsJSON, err := json.Marshal(run.Metrics)
	if err != nil {
		return 0, fmt.Errorf("store: marshal metrics: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO backtest_runs (symbol, interval, config_json, result_json, metrics_json, total_trades, win_rate_pct, net_pnl)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		run.Symbol, run.Interval, run.ConfigJSON, resultJSON, metricsJSON,
		run.Metrics.Basic.TotalTrades, run.Metrics.Basic.WinRatePct, run.Metrics.Basic.NetProfit,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: insert backtest run: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("store: commit tx: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) GetBacktestRun(ctx context.Context, id int64) (BacktestRun, error) {
	var run BacktestRun
	var resultJSON, metricsJSON []byte
	row := s.pool.QueryRow(ctx, `
		SELECT id, symbol, interval, config_json, result_json, metrics_json, created_at
		FROM backtest_runs WHERE id = $1`, id)
	if err := row.Scan(&run.ID, &run.Symbol, &run.Interval, &run.ConfigJSON, &resultJSON, &metricsJSON, &run.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return BacktestRun{}, fmt.Errorf("store: backtest run %d not found", id)
		}
		return BacktestRun{}, fmt.Errorf("store: query backtest run: %w", err)
	}
	if err := json.Unmarshal(resultJSON, &run.Result); err != nil {
		return BacktestRun{}, fmt.Errorf("store: unmarshal result: %w", err)
	}
	if err := json.Unmarshal(metricsJSON, &run.Metrics); err != nil {
		return BacktestRun{}, fmt.Errorf("store: unmarshal metrics: %w", err)
	}
	return run, nil
}

func (s *PostgresStore) ListBacktestRuns(ctx context.Context, symbol string, limit int) ([]BacktestSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, symbol, interval, total_trades, win_rate_pct, net_pnl, created_at FROM backtest_runs`
	args := []interface{}{}
	if symbol != "" {
		query += ` WHERE symbol = $1 ORDER BY created_at DESC LIMIT $2`
		args = append(args, symbol, limit)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list backtest runs: %w", err)
	}
	defer rows.Close()

	var out []BacktestSummary
	for rows.Next() {
		var sum BacktestSummary
		if err := rows.Scan(&sum.ID, &sum.Symbol, &sum.Interval, &sum.TotalTrades, &sum.WinRatePct, &sum.NetPnL, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan backtest run row: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SaveSeries(ctx context.Context, series candle.Series) error {
	barsJSON, err := json.Marshal(series.Bars)
	if err != nil {
		return fmt.Errorf("store: marshal bars: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO series_cache (symbol, interval, bars_json, saved_at) VALUES ($1, $2, $3, now())
		ON CONFLICT (symbol, interval) DO UPDATE SET bars_json = excluded.bars_json, saved_at = excluded.saved_at`,
		series.Symbol, string(series.Interval), barsJSON)
	if err != nil {
		return fmt.Errorf("store: upsert series: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSeries(ctx context.Context, symbol string, interval candle.Timeframe) (candle.Series, bool, error) {
	var barsJSON []byte
	row := s.pool.QueryRow(ctx, `SELECT bars_json FROM series_cache WHERE symbol = $1 AND interval = $2`, symbol, string(interval))
	if err := row.Scan(&barsJSON); err != nil {
		if err == pgx.ErrNoRows {
			return candle.Series{}, false, nil
		}
		return candle.Series{}, false, fmt.Errorf("store: query series: %w", err)
	}
	var bars []candle.Candle
	if err := json.Unmarshal(barsJSON, &bars); err != nil {
		return candle.Series{}, false, fmt.Errorf("store: unmarshal bars: %w", err)
	}
	series, err := candle.NewSeries(symbol, interval, bars)
	if err != nil {
		return candle.Series{}, false, fmt.Errorf("store: rebuild cached series: %w", err)
	}
	return series, true, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

var _ Store = (*PostgresStore)(nil)
