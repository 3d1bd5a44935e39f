package backtest

import (
	"testing"
	"time"

	"signalforge/internal/candle"
	"signalforge/internal/signalerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bar(t time.Time, o, h, l, c float64) candle.Candle {
	return candle.Candle{Timestamp: t, Open: o, High: h, Low: l, Close: c, Volume: 100}
}

func series(bars []candle.Candle) candle.Series {
	return candle.Series{Symbol: "BTCUSDT", Interval: candle.H1, Bars: bars}
}

func tAt(i int) time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour)
}

func holdStrategy(candle.Series) (Decision, error) {
	return Decision{Direction: Hold}, nil
}

func TestRunRejectsEmptySeries(t *testing.T) {
	e := New(DefaultConfig())
	_, err := e.Run(candle.Series{Symbol: "BTCUSDT", Interval: candle.H1}, holdStrategy)
	require.Error(t, err)
	assert.True(t, signalerr.Is(err, signalerr.KindInputInvalid))
}

func TestRunRejectsSingleBarSeries(t *testing.T) {
	e := New(DefaultConfig())
	s := series([]candle.Candle{bar(tAt(0), 100, 100, 100, 100)})
	_, err := e.Run(s, holdStrategy)
	require.Error(t, err)
	assert.True(t, signalerr.Is(err, signalerr.KindInputInvalid))
}

func TestRunAllHoldStrategyProducesZeroTradesFlatEquity(t *testing.T) {
	bars := make([]candle.Candle, 0, 100)
	for i := 0; i < 100; i++ {
		bars = append(bars, bar(tAt(i), 100, 101, 99, 100))
	}
	e := New(DefaultConfig())
	res, err := e.Run(series(bars), holdStrategy)
	require.NoError(t, err)
	assert.Empty(t, res.ClosedPositions)
	for _, pt := range res.EquityCurve {
		assert.InDelta(t, DefaultConfig().InitialCapital, pt.Equity, 1e-6)
	}
}

func TestRunFlatMarketThousandBarsNoTrades(t *testing.T) {
	bars := make([]candle.Candle, 0, 1000)
	for i := 0; i < 1000; i++ {
		bars = append(bars, bar(tAt(i), 100, 100, 100, 100))
	}
	e := New(DefaultConfig())
	res, err := e.Run(series(bars), holdStrategy)
	require.NoError(t, err)
	assert.Empty(t, res.ClosedPositions)
	last := res.EquityCurve[len(res.EquityCurve)-1]
	assert.InDelta(t, DefaultConfig().InitialCapital, last.Equity, 1e-6)
}

// buyAndHoldOnce enters long once on the first bar and otherwise holds.
func buyAndHoldOnce() StrategyFunc {
	entered := false
	return func(h candle.Series) (Decision, error) {
		if entered || h.Len() < 1 {
			return Decision{Direction: Hold}, nil
		}
		entered = true
		entry := h.Last().Close
		return Decision{
			Direction:   Buy,
			StopLoss:    entry * 0.5,
			TakeProfit1: entry * 100,
			TakeProfit2: entry * 100,
			TakeProfit3: entry * 100,
		}, nil
	}
}

func TestRunMonotonicUptrendBuyAndHoldClosesPositiveAtEnd(t *testing.T) {
	bars := make([]candle.Candle, 0, 200)
	price := 100.0
	for i := 0; i < 200; i++ {
		bars = append(bars, bar(tAt(i), price, price+1, price-1, price))
		price += 1
	}
	cfg := DefaultConfig()
	e := New(cfg)
	res, err := e.Run(series(bars), buyAndHoldOnce())
	require.NoError(t, err)
	require.Len(t, res.ClosedPositions, 1)
	pos := res.ClosedPositions[0]
	assert.Equal(t, StateClosed, pos.State)
	require.NotEmpty(t, pos.Fills)
	assert.Equal(t, ExitEnd, pos.Fills[len(pos.Fills)-1].Reason)
	assert.Greater(t, pos.RealizedPnL, 0.0)
}

// tp1OnlyStrategy enters long on bar 0 with SL=95 TP1=105 TP2=110,
// targeting the single winning-trade-to-TP1-only scenario.
func tp1OnlyStrategy() StrategyFunc {
	entered := false
	return func(h candle.Series) (Decision, error) {
		if entered {
			return Decision{Direction: Hold}, nil
		}
		entered = true
		return Decision{Direction: Buy, StopLoss: 95, TakeProfit1: 105, TakeProfit2: 110, TakeProfit3: 120}, nil
	}
}

func TestRunSingleWinningTradeHitsTP1ThenStopsOutAtBreakeven(t *testing.T) {
	bars := []candle.Candle{
		bar(tAt(0), 100, 100, 100, 100),
		bar(tAt(1), 100, 106, 100, 104),
		bar(tAt(2), 104, 104, 100, 100),
		bar(tAt(3), 100, 100, 100, 100),
	}
	cfg := DefaultConfig()
	cfg.SlippageBase = 0
	cfg.BidAskSpread = 0
	cfg.FeeEntry = 0
	cfg.FeeExit = 0
	e := New(cfg)
	res, err := e.Run(series(bars), tp1OnlyStrategy())
	require.NoError(t, err)
	require.Len(t, res.ClosedPositions, 1)
	pos := res.ClosedPositions[0]

	tp1Hit, tp2Hit := false, false
	for _, f := range pos.Fills {
		if f.Reason == ExitTakeProfit1 {
			tp1Hit = true
			assert.InDelta(t, 0.5*20, f.Size, 1e-9)
		}
		if f.Reason == ExitTakeProfit2 {
			tp2Hit = true
		}
	}
	assert.True(t, tp1Hit)
	assert.False(t, tp2Hit)
	// TP1 books 10 x (105-100) = 50; the other half exits at the
	// breakeven stop (100) on bar 2 for 0.
	assert.InDelta(t, 50, pos.RealizedPnL, 1.0)
}

func TestRunInsufficientCapitalSkipsEntrySilently(t *testing.T) {
	bars := []candle.Candle{
		bar(tAt(0), 100, 100, 100, 100),
		bar(tAt(1), 100, 101, 99, 100),
	}
	cfg := DefaultConfig()
	cfg.InitialCapital = 0
	e := New(cfg)
	strat := func(candle.Series) (Decision, error) {
		return Decision{Direction: Buy, StopLoss: 95, TakeProfit1: 105}, nil
	}
	res, err := e.Run(series(bars), strat)
	require.NoError(t, err)
	assert.Empty(t, res.ClosedPositions)
}

func TestRunRiskLimitDisablesTradingPermanently(t *testing.T) {
	bars := make([]candle.Candle, 0, 10)
	price := 100.0
	for i := 0; i < 10; i++ {
		bars = append(bars, bar(tAt(i), price, price, price*0.5, price*0.5))
		price *= 0.5
	}
	cfg := DefaultConfig()
	cfg.MaxDrawdownPct = 1
	e := New(cfg)
	calls := 0
	strat := func(candle.Series) (Decision, error) {
		calls++
		return Decision{Direction: Buy, StopLoss: 1, TakeProfit1: 1_000_000}, nil
	}
	_, err := e.Run(series(bars), strat)
	require.NoError(t, err)
	assert.False(t, e.Account().TradingEnabled)
}
