package backtest

import (
	"fmt"
	"math"
	"time"

	"signalforge/internal/candle"
	"signalforge/internal/indicator"
	"signalforge/internal/metrics"
	"signalforge/internal/signalerr"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Direction is the strategy callback's verdict for a bar.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
	Hold Direction = "HOLD"
)

// Decision is the minimal order the user strategy returns; SL/TP
// fields are only meaningful for BUY/SELL.
type Decision struct {
	Direction   Direction
	StopLoss    float64
	TakeProfit1 float64
	TakeProfit2 float64
	TakeProfit3 float64
	// ATR, if > 0 and cfg.UseATRSizing is set, sizes the stop distance
	// as ATR*cfg.ATRSizingFactor instead of |entry-stop_loss|.
	ATR float64
}

// StrategyFunc is the user-supplied callback driving entries, invoked
// once per bar with history ending at (and including) that bar.
type StrategyFunc func(history candle.Series) (Decision, error)

// Engine is spec's BacktestEngine: exclusively owns its Account, open
// Positions and EquityPoints for the run.
type Engine struct {
	cfg     Config
	account Account
	open    []*Position
	closed  []Position
	equity  []EquityPoint

	// log is the hot-path logger: every position open and every END
	// close goes through it at Debug, so it defaults to zerolog.Nop() and must be
	// opted into with WithLogger to avoid paying for disabled log
	// calls over a multi-year bar loop.
	log zerolog.Logger
}

// New constructs an Engine from cfg.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg, account: NewAccount(cfg.InitialCapital), log: zerolog.Nop()}
}

// WithLogger attaches a zerolog.Logger for bar-by-bar diagnostics.
// Pass a real logger (e.g. one tagged with the run's symbol/interval)
// when troubleshooting a specific backtest; leave the default Nop
// logger in place for bulk/parameter-sweep runs.
func (e *Engine) WithLogger(log zerolog.Logger) *Engine {
	e.log = log
	return e
}

// Run executes strategy against series bar by bar per spec §4.J.2.
func (e *Engine) Run(series candle.Series, strategy StrategyFunc) (Result, error) {
	if series.Len() == 0 {
		return Result{}, signalerr.New(signalerr.KindInputInvalid, "backtest: empty series")
	}
	if series.Len() < 2 {
		return Result{}, signalerr.New(signalerr.KindInputInvalid, "backtest: single-bar series below indicator minima")
	}

	closes := series.Closes()

	for i := 0; i < series.Len(); i++ {
		bar := series.Bars[i]
		history := candle.Series{Symbol: series.Symbol, Interval: series.Interval, Bars: series.Bars[:i+1]}
		metrics.BacktestBarsProcessed.WithLabelValues(series.Symbol).Inc()

		// 1. Mark to market every open position.
		for _, p := range e.open {
			p.markToMarket(bar.Close)
		}

		// 2. Risk limits.
		e.checkRiskLimits(bar)

		// 3. Bar volatility for adaptive slippage.
		sigma := e.volatility(closes[:i+1])

		// 4. Exit check, before entries.
		e.processExits(bar, sigma)

		// 5. Entry check.
		if e.account.TradingEnabled && e.hasCapacity(series.Symbol) {
			decision, err := strategy(history)
			if err == nil && decision.Direction != Hold {
				e.tryOpen(series.Symbol, bar, decision, sigma)
			}
		}

		// 6. Equity point.
		e.appendEquityPoint(bar.Timestamp)
	}

	// Force-close all open positions at the final close.
	last := series.Last()
	sigma := e.volatility(closes)
	for _, p := range append([]*Position{}, e.open...) {
		e.closePosition(p, last.Timestamp, last.Close, ExitEnd, sigma)
	}
	e.open = nil
	// Replace the last bar's point so the curve keeps one point per bar.
	e.equity = e.equity[:len(e.equity)-1]
	e.appendEquityPoint(last.Timestamp)

	return Result{ClosedPositions: e.closed, EquityCurve: e.equity}, nil
}

func (e *Engine) hasCapacity(symbol string) bool {
	limit := e.cfg.MaxConcurrentTrades
	if limit <= 0 {
		limit = 1
	}
	if len(e.open) >= limit {
		return false
	}
	perSymbol := 0
	for _, p := range e.open {
		if p.Symbol == symbol {
			perSymbol++
		}
	}
	if e.cfg.PositionMode == Netting && perSymbol >= 1 {
		return false
	}
	perSymbolCap := e.cfg.MaxPositionsPerSymbol
	if perSymbolCap <= 0 {
		perSymbolCap = 1
	}
	return perSymbol < perSymbolCap
}

// volatility estimates sigma as the stdev of simple returns over the
// configured lookback window.
func (e *Engine) volatility(closes []float64) float64 {
	lookback := e.cfg.VolatilityLookback
	if lookback <= 1 || len(closes) < lookback+1 {
		return 0
	}
	window := closes[len(closes)-lookback-1:]
	returns := make([]float64, 0, len(window)-1)
	for i := 1; i < len(window); i++ {
		if window[i-1] == 0 {
			continue
		}
		returns = append(returns, (window[i]-window[i-1])/window[i-1])
	}
	if len(returns) == 0 {
		return 0
	}
	sd, ok := indicator.Stdev(returns, len(returns))
	if !ok {
		return 0
	}
	return sd
}

func (e *Engine) checkRiskLimits(bar candle.Candle) {
	if !e.account.TradingEnabled {
		return
	}
	equity := e.currentEquity()
	if equity > e.account.PeakEquity {
		e.account.PeakEquity = equity
	}
	if e.cfg.MaxDrawdownPct > 0 && e.account.PeakEquity > 0 {
		drawdownPct := (e.account.PeakEquity - equity) / e.account.PeakEquity * 100
		if drawdownPct >= e.cfg.MaxDrawdownPct {
			e.disableTrading("max_drawdown_breached")
			return
		}
	}
	if e.cfg.MaxDailyLossPct > 0 && e.account.Capital > 0 {
		dateKey := bar.Timestamp.UTC().Format("2006-01-02")
		dailyPnL := e.account.DailyPnLByDate[dateKey]
		lossPct := -dailyPnL / e.account.Capital * 100
		if lossPct >= e.cfg.MaxDailyLossPct {
			e.disableTrading("max_daily_loss_breached")
		}
	}
}

// disableTrading flips trading_enabled false permanently; per spec
// §4.J.1 it is never re-enabled once tripped within a run.
func (e *Engine) disableTrading(reason string) {
	if !e.account.TradingEnabled {
		return
	}
	e.account.TradingEnabled = false
	e.account.DisabledReason = reason
}

func (e *Engine) currentEquity() float64 {
	unrealized := 0.0
	for _, p := range e.open {
		unrealized += p.UnrealizedPnL
	}
	return e.account.Cash + e.account.ReservedMargin + unrealized
}

// Order-type factor for the adaptive slippage model: SL exits and the
// initial market entry behave like market orders; TP exits behave like
// resting limit orders.
const (
	marketOrderFactor = 1.5
	limitOrderFactor  = 0.5
)

func slippagePct(base, sigma, factor float64) float64 {
	return base * (1 + 10*sigma) * factor
}

// executionPrice applies the half-spread and slippage adversely to the
// trader: "Final execution price = spread-adjusted price · (1 +
// sign·slippage_pct)".
func executionPrice(base float64, side Side, isEntry bool, slip, halfSpread float64) (price, slippageAmount float64) {
	isBuyAction := (side == Long && isEntry) || (side == Short && !isEntry)
	d := -1.0
	if isBuyAction {
		d = 1.0
	}
	spreadAdjusted := base * (1 + d*halfSpread)
	final := spreadAdjusted * (1 + d*slip)
	return final, math.Abs(final - spreadAdjusted)
}

// processExits applies the configured execution priority to every open
// position for this bar: at most one SL event and one TP event per
// position per bar, and TP1/TP2 never both fire in the same bar.
func (e *Engine) processExits(bar candle.Candle, sigma float64) {
	remaining := e.open[:0:0]
	for _, p := range e.open {
		e.processExitsFor(p, bar, sigma)
		if p.State != StateClosed {
			remaining = append(remaining, p)
		} else {
			e.closed = append(e.closed, *p)
		}
	}
	e.open = remaining
}

func (e *Engine) processExitsFor(p *Position, bar candle.Candle, sigma float64) {
	slHit := func() bool {
		if p.Side == Long {
			return bar.Low <= p.StopLoss
		}
		return bar.High >= p.StopLoss
	}
	tp1Hit := func() bool {
		if p.TP1Hit {
			return false
		}
		if p.Side == Long {
			return bar.High >= p.TakeProfit1
		}
		return bar.Low <= p.TakeProfit1
	}
	tp2Hit := func() bool {
		if !p.TP1Hit || p.TP2Hit {
			return false
		}
		if p.Side == Long {
			return bar.High >= p.TakeProfit2
		}
		return bar.Low <= p.TakeProfit2
	}
	tp3Hit := func() bool {
		if !p.TP2Hit {
			return false
		}
		if p.Side == Long {
			return bar.High >= p.TakeProfit3
		}
		return bar.Low <= p.TakeProfit3
	}

	doSL := func() bool {
		if !slHit() {
			return false
		}
		slip := slippagePct(e.cfg.SlippageBase, sigma, marketOrderFactor)
		price, slipAmt := executionPrice(p.StopLoss, p.Side, false, slip, e.cfg.BidAskSpread)
		e.settleClose(p, bar.Timestamp, price, p.RemainingSize, ExitStopLoss, slipAmt)
		return true
	}
	doTP1 := func() bool {
		if !tp1Hit() {
			return false
		}
		slip := slippagePct(e.cfg.SlippageBase, sigma, limitOrderFactor)
		price, slipAmt := executionPrice(p.TakeProfit1, p.Side, false, slip, e.cfg.BidAskSpread)
		size := p.InitialSize * 0.5
		e.settleClose(p, bar.Timestamp, price, size, ExitTakeProfit1, slipAmt)
		p.TP1Hit = true
		p.StopLoss = p.EntryPrice
		p.BreakevenSet = true
		return true
	}
	doTP2 := func() bool {
		if !tp2Hit() {
			return false
		}
		slip := slippagePct(e.cfg.SlippageBase, sigma, limitOrderFactor)
		price, slipAmt := executionPrice(p.TakeProfit2, p.Side, false, slip, e.cfg.BidAskSpread)
		size := p.InitialSize * 0.3
		e.settleClose(p, bar.Timestamp, price, size, ExitTakeProfit2, slipAmt)
		p.TP2Hit = true
		if p.TrailingK == 0 {
			p.TrailingK = 1.5
		}
		return true
	}
	doTP3 := func() bool {
		if !tp3Hit() {
			return false
		}
		slip := slippagePct(e.cfg.SlippageBase, sigma, limitOrderFactor)
		price, slipAmt := executionPrice(p.TakeProfit3, p.Side, false, slip, e.cfg.BidAskSpread)
		e.settleClose(p, bar.Timestamp, price, p.RemainingSize, ExitTakeProfit3, slipAmt)
		return true
	}

	tpEvents := []func() bool{doTP1, doTP2, doTP3}

	if e.cfg.ExecutionPriority == TakeProfitFirst {
		for _, f := range tpEvents {
			if f() {
				return
			}
		}
		doSL()
		return
	}

	// STOP_LOSS_FIRST and FIFO: FIFO only orders *across* positions
	// (the caller already iterates e.open in entry order); within a
	// single position SL still takes priority, which also guarantees
	// at most one SL+one TP event per bar.
	if doSL() {
		return
	}
	for _, f := range tpEvents {
		if f() {
			return
		}
	}
}

// settleClose books a partial or full close, updating cash/reserved
// margin/capital per the engine's cost-basis accounting: capital moves
// only on realized events (fees at open, pnl-less-fee at each close),
// so cash+reservedMargin always equals capital and equity is simply
// capital plus the open positions' unrealized pnl.
func (e *Engine) settleClose(p *Position, now time.Time, price, size float64, reason string, slipAmt float64) {
	costBasis := size * p.EntryPrice
	exitNotional := size * price
	fee := exitNotional * e.cfg.FeeExit

	p.closePartial(now, price, size, reason, e.cfg.FeeExit, slipAmt)

	realized := signOf(p.Side)*(price-p.EntryPrice)*size - fee
	e.account.Cash += costBasis + realized
	e.account.ReservedMargin -= costBasis
	e.account.Capital += realized

	dateKey := now.UTC().Format("2006-01-02")
	e.account.DailyPnLByDate[dateKey] += realized
}

// closePosition force-closes the full remaining size (used at END).
func (e *Engine) closePosition(p *Position, now time.Time, price float64, reason string, sigma float64) {
	if p.RemainingSize <= 0 {
		return
	}
	slip := slippagePct(e.cfg.SlippageBase, sigma, limitOrderFactor)
	execPrice, slipAmt := executionPrice(price, p.Side, false, slip, e.cfg.BidAskSpread)
	e.settleClose(p, now, execPrice, p.RemainingSize, reason, slipAmt)
	e.log.Debug().
		Str("position_id", p.Tags["position_id"]).
		Str("symbol", p.Symbol).
		Str("reason", reason).
		Float64("price", execPrice).
		Float64("realized_pnl", p.RealizedPnL).
		Msg("position closed")
	e.closed = append(e.closed, *p)
}

// tryOpen sizes and opens a new Position per spec §4.J.3. Insufficient
// cash is not an error: the signal is skipped silently, per §7.
func (e *Engine) tryOpen(symbol string, bar candle.Candle, d Decision, sigma float64) {
	side := Long
	if d.Direction == Sell {
		side = Short
	}

	entrySignal := bar.Close
	riskCap := 1.0
	if e.cfg.RiskPerTrade > 0 {
		riskCap = math.Min(1, e.cfg.PerAssetCapPct/e.cfg.RiskPerTrade)
	}
	riskAmount := e.account.Capital * e.cfg.RiskPerTrade * riskCap

	stopDistance := math.Abs(entrySignal - d.StopLoss)
	if e.cfg.UseATRSizing && d.ATR > 0 {
		stopDistance = d.ATR * e.cfg.ATRSizingFactor
	}
	if stopDistance <= 0 {
		return
	}

	size := riskAmount / stopDistance
	if e.cfg.MaxLeverage > 0 {
		maxNotional := e.account.Capital * e.cfg.MaxLeverage
		if size*entrySignal > maxNotional {
			size = maxNotional / entrySignal
		}
	}
	if size <= 0 {
		return
	}

	slip := slippagePct(e.cfg.SlippageBase, sigma, marketOrderFactor)
	execPrice, slipAmt := executionPrice(entrySignal, side, true, slip, e.cfg.BidAskSpread)

	notional := size * execPrice
	fee := notional * e.cfg.FeeEntry
	if notional+fee > e.account.Cash {
		return
	}

	e.account.Cash -= notional + fee
	e.account.ReservedMargin += notional
	e.account.Capital -= fee

	p := &Position{
		Symbol:          symbol,
		Side:            side,
		EntryTime:       bar.Timestamp,
		EntryPrice:      execPrice,
		EntryFee:        fee,
		InitialSize:     size,
		RemainingSize:   size,
		StopLoss:        d.StopLoss,
		TakeProfit1:     d.TakeProfit1,
		TakeProfit2:     d.TakeProfit2,
		TakeProfit3:     d.TakeProfit3,
		State:           StateOpen,
		SlippageAccrued: slipAmt * size,
		Tags:            map[string]string{"position_id": uuid.NewString()},
	}
	e.log.Debug().
		Str("position_id", p.Tags["position_id"]).
		Str("symbol", symbol).
		Str("side", string(side)).
		Float64("entry_price", execPrice).
		Float64("size", size).
		Msg("position opened")
	e.open = append(e.open, p)
}

func (e *Engine) appendEquityPoint(ts time.Time) {
	equity := e.currentEquity()
	if equity > e.account.PeakEquity {
		e.account.PeakEquity = equity
	}
	drawdown := 0.0
	if e.account.PeakEquity > 0 {
		drawdown = (e.account.PeakEquity - equity) / e.account.PeakEquity * 100
	}
	e.equity = append(e.equity, EquityPoint{
		Timestamp:          ts,
		Equity:             equity,
		Cash:               e.account.Cash,
		ReservedMargin:     e.account.ReservedMargin,
		OpenPositionsCount: len(e.open),
		DrawdownPct:        drawdown,
	})
}

// Account returns the engine's current account state.
func (e *Engine) Account() Account { return e.account }

// String renders a short human-readable summary.
func (r Result) String() string {
	return fmt.Sprintf("backtest: %d closed positions, %d equity points", len(r.ClosedPositions), len(r.EquityCurve))
}
