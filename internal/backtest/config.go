package backtest

// PositionMode controls whether same-symbol exposure nets into one
// Position or allows simultaneous long+short.
type PositionMode string

const (
	Netting  PositionMode = "NETTING"
	Hedging  PositionMode = "HEDGING"
)

// ExecutionPriority controls which exit condition is checked first
// when both could fire within the same bar.
type ExecutionPriority string

const (
	StopLossFirst   ExecutionPriority = "STOP_LOSS_FIRST"
	TakeProfitFirst ExecutionPriority = "TAKE_PROFIT_FIRST"
	FIFO            ExecutionPriority = "FIFO"
)

// Config is spec §4.J.1's recognized options.
type Config struct {
	InitialCapital     float64
	RiskPerTrade       float64 // fraction of capital risked per position
	SlippageBase       float64 // fraction of price
	BidAskSpread       float64 // half-spread applied on both sides
	FeeEntry           float64
	FeeExit            float64
	VolatilityLookback int
	MaxConcurrentTrades int
	MaxPositionsPerSymbol int
	PositionMode       PositionMode
	ExecutionPriority  ExecutionPriority
	MaxDailyLossPct    float64
	MaxDrawdownPct     float64
	MaxLeverage        float64
	PerAssetCapPct     float64
	UseATRSizing       bool
	ATRSizingFactor    float64
	RandomSeed         int64
}

// DefaultConfig returns conservative defaults usable with no further
// tuning, matching the teacher's commission-only RunBacktest defaults
// extended with the spec's additional risk controls.
func DefaultConfig() Config {
	return Config{
		InitialCapital:        10_000,
		RiskPerTrade:          0.01,
		SlippageBase:          0.0005,
		BidAskSpread:          0.0002,
		FeeEntry:              0.0004,
		FeeExit:               0.0004,
		VolatilityLookback:    20,
		MaxConcurrentTrades:   5,
		MaxPositionsPerSymbol: 1,
		PositionMode:          Netting,
		ExecutionPriority:     StopLossFirst,
		MaxDailyLossPct:       5.0,
		MaxDrawdownPct:        20.0,
		MaxLeverage:           3.0,
		PerAssetCapPct:        0.02,
		UseATRSizing:          false,
		ATRSizingFactor:       1.5,
		RandomSeed:            0,
	}
}
