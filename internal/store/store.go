// Package store implements spec §3's "pluggable store" for backtest
// runs and memoized historical candle series. Grounded on
// koshedutech-binance-trading-app/internal/database's
// repository_backtest.go (BacktestResult/BacktestTrade tables, one
// transaction per save) and db.go (pgxpool connection/migration
// shape), but collapsed from that schema's twenty-column normalized
// BacktestResult row plus a per-trade table into two JSON-blob
// columns (result, metrics) on one backtest_runs row — spec §4.K's
// tearsheet JSON is already the authoritative artifact, so the store
// exists to retrieve it by ID and to list recent runs, not to let SQL
// recompute analytics the engine already computed.
package store

import (
	"context"
	"time"

	"signalforge/internal/analytics"
	"signalforge/internal/backtest"
	"signalforge/internal/candle"
)

// BacktestRun is one persisted run: the raw engine Result plus its
// computed analytics, addressable by ID.
type BacktestRun struct {
	ID         int64
	Symbol     string
	Interval   string
	ConfigJSON string
	Result     backtest.Result
	Metrics    analytics.Metrics
	CreatedAt  time.Time
}

// BacktestSummary is the lightweight row ListBacktestRuns returns —
// no Result/Metrics payload, since a list view only needs enough to
// pick a run to fetch in full.
type BacktestSummary struct {
	ID          int64
	Symbol      string
	Interval    string
	TotalTrades int
	WinRatePct  float64
	NetPnL      float64
	CreatedAt   time.Time
}

// Store is the pluggable persistence boundary spec §3 calls for. The
// series-cache methods sit on Store itself rather than on a separate
// interface, since every backend in this package implements both.
type Store interface {
	SaveBacktestRun(ctx context.Context, run BacktestRun) (int64, error)
	GetBacktestRun(ctx context.Context, id int64) (BacktestRun, error)
	ListBacktestRuns(ctx context.Context, symbol string, limit int) ([]BacktestSummary, error)

	SaveSeries(ctx context.Context, series candle.Series) error
	GetSeries(ctx context.Context, symbol string, interval candle.Timeframe) (candle.Series, bool, error)

	Close() error
}
