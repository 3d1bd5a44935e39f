// Package backtest implements spec §4.J: the event-driven, strictly
// single-threaded bar-by-bar simulator. Grounded on
// koshedutech-binance-trading-app/internal/backtest/engine.go's
// iterate-candles/open-or-close-trade/append-equity-point loop shape,
// generalized from its single open Trade and at-close-only exits to
// the spec's Position state machine, tranched partial fills,
// configurable execution priority, and portfolio-level risk limits.
package backtest

import "time"

// Side is a position's market direction.
type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
)

// PositionState is the lifecycle spec §3 mandates: OPEN ->
// PARTIALLY_CLOSED -> CLOSED, never reopened.
type PositionState string

const (
	StateOpen            PositionState = "OPEN"
	StatePartiallyClosed PositionState = "PARTIALLY_CLOSED"
	StateClosed          PositionState = "CLOSED"
)

// Exit reasons recorded on each Fill.
const (
	ExitStopLoss    = "SL"
	ExitTakeProfit1 = "TP1"
	ExitTakeProfit2 = "TP2"
	ExitTakeProfit3 = "TP3"
	ExitEnd         = "END"
)

// Fill is one partial or full close event.
type Fill struct {
	Time     time.Time
	Price    float64
	Size     float64
	Reason   string
	Fee      float64
	Slippage float64
	PnL      float64
}

// Position is spec's Position: OPEN -> PARTIALLY_CLOSED -> CLOSED;
// size, realized PnL and state change only through closePartial.
type Position struct {
	Symbol string
	Side   Side

	EntryTime  time.Time
	EntryPrice float64
	EntryFee   float64

	InitialSize   float64
	RemainingSize float64

	StopLoss      float64
	TakeProfit1   float64
	TakeProfit2   float64
	TakeProfit3   float64
	TP1Hit        bool
	TP2Hit        bool
	BreakevenSet  bool
	TrailingStop  *float64
	TrailingK     float64
	TrailingTFATR float64

	State PositionState

	RealizedPnL    float64
	UnrealizedPnL  float64
	ExitFeesPaid   float64
	SlippageAccrued float64

	Fills []Fill
	Tags  map[string]string
}

func signOf(s Side) float64 {
	if s == Long {
		return 1
	}
	return -1
}

// markToMarket updates UnrealizedPnL against the bar close.
func (p *Position) markToMarket(close float64) {
	p.UnrealizedPnL = signOf(p.Side) * (close - p.EntryPrice) * p.RemainingSize
}

// closePartial closes `size` of the position at `price`, recording a
// Fill and updating realized PnL, fees and state. size must be <=
// RemainingSize.
func (p *Position) closePartial(now time.Time, price, size float64, reason string, feeRate, slippage float64) {
	if size > p.RemainingSize {
		size = p.RemainingSize
	}
	pnl := signOf(p.Side) * (price - p.EntryPrice) * size
	fee := price * size * feeRate
	p.RealizedPnL += pnl - fee
	p.ExitFeesPaid += fee
	p.SlippageAccrued += slippage * size
	p.RemainingSize -= size
	p.Fills = append(p.Fills, Fill{Time: now, Price: price, Size: size, Reason: reason, Fee: fee, Slippage: slippage * size, PnL: pnl - fee})

	if p.RemainingSize <= 1e-9 {
		p.RemainingSize = 0
		p.State = StateClosed
	} else {
		p.State = StatePartiallyClosed
	}
	p.markToMarket(price)
}

// Account is spec's Account.
type Account struct {
	Capital         float64
	Cash            float64
	ReservedMargin  float64
	PeakEquity      float64
	DailyPnLByDate  map[string]float64
	TradingEnabled  bool
	DisabledReason  string
}

// NewAccount initializes an Account with capital fully in cash and
// trading enabled.
func NewAccount(capital float64) Account {
	return Account{
		Capital:        capital,
		Cash:           capital,
		PeakEquity:     capital,
		DailyPnLByDate: make(map[string]float64),
		TradingEnabled: true,
	}
}

// EquityPoint is spec's EquityPoint, appended once per bar.
type EquityPoint struct {
	Timestamp         time.Time
	Equity            float64
	Cash              float64
	ReservedMargin    float64
	OpenPositionsCount int
	DrawdownPct       float64
}

// Result is spec's BacktestResult.
type Result struct {
	ClosedPositions []Position
	EquityCurve     []EquityPoint
}
