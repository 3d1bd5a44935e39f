package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"signalforge/internal/analytics"
	"signalforge/internal/backtest"
	"signalforge/internal/candle"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "signalctl_test.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun() BacktestRun {
	return BacktestRun{
		Symbol:     "BTCUSDT",
		Interval:   "H1",
		ConfigJSON: `{"initial_capital":10000}`,
		Result: backtest.Result{
			ClosedPositions: []backtest.Position{{Symbol: "BTCUSDT", Side: backtest.Long}},
			EquityCurve:     []backtest.EquityPoint{{Equity: 10000}},
		},
		Metrics: analytics.Metrics{
			Basic: analytics.Basic{TotalTrades: 1, WinRatePct: 100, NetProfit: 250.5},
		},
	}
}

func TestSQLiteSaveAndGetBacktestRunRoundTrips(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.SaveBacktestRun(ctx, sampleRun())
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	got, err := s.GetBacktestRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", got.Symbol)
	assert.Equal(t, 1, got.Metrics.Basic.TotalTrades)
	assert.InDelta(t, 250.5, got.Metrics.Basic.NetProfit, 1e-9)
	require.Len(t, got.Result.ClosedPositions, 1)
}

func TestSQLiteGetBacktestRunMissingReturnsError(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetBacktestRun(context.Background(), 999)
	assert.Error(t, err)
}

func TestSQLiteListBacktestRunsFiltersBySymbol(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	btc := sampleRun()
	eth := sampleRun()
	eth.Symbol = "ETHUSDT"

	_, err := s.SaveBacktestRun(ctx, btc)
	require.NoError(t, err)
	_, err = s.SaveBacktestRun(ctx, eth)
	require.NoError(t, err)

	all, err := s.ListBacktestRuns(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyBTC, err := s.ListBacktestRuns(ctx, "BTCUSDT", 10)
	require.NoError(t, err)
	require.Len(t, onlyBTC, 1)
	assert.Equal(t, "BTCUSDT", onlyBTC[0].Symbol)
}

func TestSQLiteSaveAndGetSeriesRoundTrips(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := []candle.Candle{
		{Timestamp: base, Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 10},
		{Timestamp: base.Add(time.Hour), Open: 100.5, High: 102, Low: 100, Close: 101.5, Volume: 12},
	}
	series, err := candle.NewSeries("BTCUSDT", candle.H1, bars)
	require.NoError(t, err)

	require.NoError(t, s.SaveSeries(ctx, series))

	got, found, err := s.GetSeries(ctx, "BTCUSDT", candle.H1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, series.Len(), got.Len())
	assert.Equal(t, series.Bars[1].Close, got.Bars[1].Close)

	_, found, err = s.GetSeries(ctx, "ETHUSDT", candle.H1)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSQLiteSaveSeriesUpsertsOnConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	first, err := candle.NewSeries("BTCUSDT", candle.H1, []candle.Candle{{Timestamp: base, Open: 1, High: 1, Low: 1, Close: 1, Volume: 1}})
	require.NoError(t, err)
	require.NoError(t, s.SaveSeries(ctx, first))

	second, err := candle.NewSeries("BTCUSDT", candle.H1, []candle.Candle{
		{Timestamp: base, Open: 1, High: 1, Low: 1, Close: 1, Volume: 1},
		{Timestamp: base.Add(time.Hour), Open: 2, High: 2, Low: 2, Close: 2, Volume: 2},
	})
	require.NoError(t, err)
	require.NoError(t, s.SaveSeries(ctx, second))

	got, found, err := s.GetSeries(ctx, "BTCUSDT", candle.H1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2, got.Len())
}
