package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"signalforge/internal/candle"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS backtest_runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol TEXT NOT NULL,
	interval TEXT NOT NULL,
	config_json TEXT NOT NULL,
	result_json TEXT NOT NULL,
	metrics_json TEXT NOT NULL,
	total_trades INTEGER NOT NULL,
	win_rate_pct REAL NOT NULL,
	net_pnl REAL NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_backtest_runs_symbol ON backtest_runs(symbol);

CREATE TABLE IF NOT EXISTS series_cache (
	symbol TEXT NOT NULL,
	interval TEXT NOT NULL,
	bars_json TEXT NOT NULL,
	saved_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (symbol, interval)
);
`

// SQLiteStore is the zero-dependency default Store backend, following
// the modernc.org/sqlite driver registration style used in
// stadam23-Eve-flipper/internal/db and poorman-SynapseStrike for the
// same reason: a pure-Go sqlite driver needs no cgo toolchain, which
// matters for a CLI tool people run without a build environment.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if absent) a SQLite-backed Store at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers; avoid SQLITE_BUSY under concurrent workers

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveBacktestRun(ctx context.Context, run BacktestRun) (int64, error) {
	resultJSON, err := json.Marshal(run.Result)
	if err != nil {
		return 0, fmt.Errorf("store: marshal result: %w", err)
	}
	metricsJSON, err := json.Marshal(run.Metrics)
	if err != nil {
		return 0, fmt.Errorf("store: marshal metrics: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO backtest_runs (symbol, interval, config_json, result_json, metrics_json, total_trades, win_rate_pct, net_pnl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Symbol, run.Interval, run.ConfigJSON, string(resultJSON), string(metricsJSON),
		run.Metrics.Basic.TotalTrades, run.Metrics.Basic.WinRatePct, run.Metrics.Basic.NetProfit,
	)
	if err != nil {
		return 0, fmt.Errorf("store: insert backtest run: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) GetBacktestRun(ctx context.Context, id int64) (BacktestRun, error) {
	var run BacktestRun
	var resultJSON, metricsJSON string
	row := s.db.QueryRowContext(ctx, `
		SELECT id, symbol, interval, config_json, result_json, metrics_json, created_at
		FROM backtest_runs WHERE id = ?`, id)
	if err := row.Scan(&run.ID, &run.Symbol, &run.Interval, &run.ConfigJSON, &resultJSON, &metricsJSON, &run.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return BacktestRun{}, fmt.Errorf("store: backtest run %d not found", id)
		}
		return BacktestRun{}, fmt.Errorf("store: query backtest run: %w", err)
	}
	if err := json.Unmarshal([]byte(resultJSON), &run.Result); err != nil {
		return BacktestRun{}, fmt.Errorf("store: unmarshal result: %w", err)
	}
	if err := json.Unmarshal([]byte(metricsJSON), &run.Metrics); err != nil {
		return BacktestRun{}, fmt.Errorf("store: unmarshal metrics: %w", err)
	}
	return run, nil
}

func (s *SQLiteStore) ListBacktestRuns(ctx context.Context, symbol string, limit int) ([]BacktestSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, symbol, interval, total_trades, win_rate_pct, net_pnl, created_at FROM backtest_runs`
	args := []interface{}{}
	if symbol != "" {
		query += ` WHERE symbol = ?`
		args = append(args, symbol)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
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

func (s *SQLiteStore) SaveSeries(ctx context.Context, series candle.Series) error {
	barsJSON, err := json.Marshal(series.Bars)
	if err != nil {
		return fmt.Errorf("store: marshal bars: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO series_cache (symbol, interval, bars_json, saved_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(symbol, interval) DO UPDATE SET bars_json = excluded.bars_json, saved_at = excluded.saved_at`,
		series.Symbol, string(series.Interval), string(barsJSON), time.Now())
	if err != nil {
		return fmt.Errorf("store: upsert series: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetSeries(ctx context.Context, symbol string, interval candle.Timeframe) (candle.Series, bool, error) {
	var barsJSON string
	row := s.db.QueryRowContext(ctx, `SELECT bars_json FROM series_cache WHERE symbol = ? AND interval = ?`, symbol, string(interval))
	if err := row.Scan(&barsJSON); err != nil {
		if err == sql.ErrNoRows {
			return candle.Series{}, false, nil
		}
		return candle.Series{}, false, fmt.Errorf("store: query series: %w", err)
	}
	var bars []candle.Candle
	if err := json.Unmarshal([]byte(barsJSON), &bars); err != nil {
		return candle.Series{}, false, fmt.Errorf("store: unmarshal bars: %w", err)
	}
	series, err := candle.NewSeries(symbol, interval, bars)
	if err != nil {
		return candle.Series{}, false, fmt.Errorf("store: rebuild cached series: %w", err)
	}
	return series, true, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

var _ Store = (*SQLiteStore)(nil)
