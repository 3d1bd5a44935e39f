package api

import (
	"errors"
	"net/http"
	"strconv"

	"signalforge/internal/analytics"
	"signalforge/internal/backtest"
	"signalforge/internal/candle"
	"signalforge/internal/filter/criteria"
	"signalforge/internal/indicator"
	"signalforge/internal/signalerr"
	"signalforge/internal/store"

	"github.com/gin-gonic/gin"
)

// generateSignalRequest is the POST /signals/:symbol body: the
// direction hypothesis to test. Symbol itself comes from the path,
// matching spec §5. Regime adjustment needs three raw return series
// (candidate, risk-basket, gold) that a single HTTP call has no good
// way to supply, so this endpoint always calls Generate with a nil
// RegimeInputs and skips that stage.
type generateSignalRequest struct {
	Direction string `json:"direction" binding:"required,oneof=BUY SELL"`
}

func (s *Server) handleGenerateSignal(c *gin.Context) {
	symbol := c.Param("symbol")
	var req generateSignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	direction := criteria.Buy
	if req.Direction == "SELL" {
		direction = criteria.Sell
	}

	sig, err := s.Pipeline.Generate(c.Request.Context(), symbol, direction, nil)
	if err != nil {
		writeSignalErr(c, err)
		return
	}
	c.JSON(http.StatusOK, sig)
}

// runBacktestRequest is POST /backtests' body. Bars carries the
// candle history to replay; a production deployment would instead
// resolve Symbol/Interval against a market.Provider or the series
// cache in internal/store, but accepting bars directly keeps the
// handler self-contained and easy to exercise from a client that
// already has its own OHLCV data.
type runBacktestRequest struct {
	Symbol   string           `json:"symbol" binding:"required"`
	Interval string           `json:"interval" binding:"required"`
	Bars     []candle.Candle  `json:"bars" binding:"required,min=1"`
	Config   *backtest.Config `json:"config,omitempty"`
}

// handleRunBacktest drives backtest.Engine with a simple EMA21/EMA50
// crossover strategy built from indicator.Snapshot.Trend(). Wiring
// the full signal.Pipeline (multi-timeframe loads, the criteria
// filter, the ML validator) into a single synchronous HTTP request
// would require four aligned timeframes' worth of history per bar,
// which is out of scope for this endpoint; the crossover strategy
// below exists so the backtest surface is independently exercisable,
// not as a replacement for signal.Pipeline.Generate.
func (s *Server) handleRunBacktest(c *gin.Context) {
	var req runBacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	interval := candle.Timeframe(req.Interval)
	series, err := candle.NewSeries(req.Symbol, interval, req.Bars)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg := backtest.DefaultConfig()
	if req.Config != nil {
		cfg = *req.Config
	}

	engine := backtest.New(cfg)
	result, err := engine.Run(series, EMACrossoverStrategy())
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	const tradingBarsPerYear = 252 * 24
	metrics := analytics.Compute(result, cfg.InitialCapital, tradingBarsPerYear)

	run := store.BacktestRun{
		Symbol:   req.Symbol,
		Interval: req.Interval,
		Result:   result,
		Metrics:  metrics,
	}
	id, err := s.Store.SaveBacktestRun(c.Request.Context(), run)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist backtest run"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":      id,
		"metrics": metrics,
		"result":  result,
	})
}

// EMACrossoverStrategy goes long on every bar where Snapshot.Trend
// reports a bullish trend and short on every bar where it reports a
// bearish one (it does not wait for a fresh cross), sizing stops off
// the current ATR. It
// holds at most one open stance at a time: Engine itself enforces
// MaxConcurrentTrades/MaxPositionsPerSymbol, so the strategy callback
// only needs to say what it would do on this bar, not track state.
// Exported so cmd/signalctl's run-backtest command can drive the same
// engine outside of an HTTP request.
func EMACrossoverStrategy() backtest.StrategyFunc {
	return func(history candle.Series) (backtest.Decision, error) {
		snap := indicator.Compute(history)
		bullish, ok := snap.Trend()
		if !ok {
			return backtest.Decision{Direction: backtest.Hold}, nil
		}

		atr := 0.0
		if snap.ATR14 != nil {
			atr = *snap.ATR14
		}
		if atr <= 0 {
			return backtest.Decision{Direction: backtest.Hold}, nil
		}

		entry := history.Last().Close
		riskMultiple, rewardMultiple := 1.5, 2.5

		if bullish {
			return backtest.Decision{
				Direction:   backtest.Buy,
				StopLoss:    entry - riskMultiple*atr,
				TakeProfit1: entry + rewardMultiple*atr,
				ATR:         atr,
			}, nil
		}
		return backtest.Decision{
			Direction:   backtest.Sell,
			StopLoss:    entry + riskMultiple*atr,
			TakeProfit1: entry - rewardMultiple*atr,
			ATR:         atr,
		}, nil
	}
}

func (s *Server) handleGetTearsheet(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid backtest id"})
		return
	}

	run, err := s.Store.GetBacktestRun(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "backtest run not found"})
		return
	}

	switch format := c.DefaultQuery("format", "json"); format {
	case "csv":
		c.Header("Content-Type", "text/csv")
		if err := analytics.WriteCSV(c.Writer, run.Metrics); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render csv"})
		}
	case "html":
		c.Header("Content-Type", "text/html")
		if err := analytics.WriteHTML(c.Writer, run.Metrics); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render html"})
		}
	default:
		c.JSON(http.StatusOK, run.Metrics)
	}
}

// writeSignalErr maps signalerr.Kind to an HTTP status, mirroring the
// teacher's handlers' pattern of switching on a domain error type
// rather than treating every failure as a 500.
func writeSignalErr(c *gin.Context, err error) {
	var serr *signalerr.Error
	if !errors.As(err, &serr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusBadGateway
	switch serr.Kind {
	case signalerr.KindInputInvalid:
		status = http.StatusBadRequest
	case signalerr.KindRateLimited:
		status = http.StatusTooManyRequests
	case signalerr.KindTimeout, signalerr.KindDeadline:
		status = http.StatusGatewayTimeout
	case signalerr.KindCancelled:
		status = 499
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": serr.Kind.String()})
}
