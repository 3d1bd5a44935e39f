// Package criteria implements spec §4.E: the 17-20 named criteria the
// ultra filter evaluates against a multi-timeframe view and auxiliary
// context. Grounded on the original Python ultra_aplus_filter.py's
// layered criterion list, reworked into one typed Criterion per
// spec.md's declared ordering instead of a dict of ad hoc checks
// (Design Notes: "dynamic attribute dicts ... replace with typed
// records").
package criteria

import (
	"time"

	"signalforge/internal/candle"
	"signalforge/internal/indicator"
	"signalforge/internal/provider/aux"
)

// Direction is the side under test.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

// AssetClass selects which variant of criterion 20 applies.
type AssetClass string

const (
	ClassCrypto AssetClass = "crypto"
	ClassForex  AssetClass = "forex"
	ClassOther  AssetClass = "other"
)

// SymbolProfile carries the symbol-dependent floors and windows the
// spec calls out as "symbol-dependent" (criteria 9, 10, 16, 17, 20)
// instead of one hard-coded global constant.
type SymbolProfile struct {
	Class AssetClass

	// ATRVolatilityFloor is criterion 9's minimum H1 ATR.
	ATRVolatilityFloor float64
	// EMASpacingFloor is criterion 10's minimum |EMA21-EMA50| on H1.
	EMASpacingFloor float64
	// ActiveSessionStartUTC/ActiveSessionEndUTC are criterion 16's
	// active window, as half-open [start,end) UTC hours.
	ActiveSessionStartUTC int
	ActiveSessionEndUTC   int

	// RiskATRMultiple / RewardATRMultiple parameterize criterion 17's
	// SL/TP distances. Spec.md's literal example (1.5 / 2.5) cannot
	// itself satisfy the reward/risk >= 2.0 check it feeds (2.5/1.5 =
	// 1.67); see DESIGN.md for this Open Question resolution. Default
	// here keeps the ratio at exactly the required minimum.
	RiskATRMultiple   float64
	RewardATRMultiple float64

	// BaseCurrency/QuoteCurrency are used by the forex variant of
	// criterion 20.
	BaseCurrency  string
	QuoteCurrency string
}

// DefaultSymbolProfile returns sane crypto-scale defaults (BTC/USD
// order of magnitude floors), matching the original source's
// BTC-expert config constants.
func DefaultSymbolProfile() SymbolProfile {
	return SymbolProfile{
		Class:                 ClassCrypto,
		ATRVolatilityFloor:    100,
		EMASpacingFloor:       50,
		ActiveSessionStartUTC: 13,
		ActiveSessionEndUTC:   17,
		RiskATRMultiple:       1.5,
		RewardATRMultiple:     3.0,
	}
}

// Result is spec's CriterionResult: immutable, carries the criterion
// name so FilterDecision can preserve declared order without a map.
type Result struct {
	Name    string
	Passed  bool
	Message string
}

// Input bundles everything a Criterion needs. Clock is injected (never
// time.Now() directly) so tests use a frozen clock, per Design Notes.
type Input struct {
	MTF       candle.MTFView
	Aux       aux.Context
	Direction Direction
	Profile   SymbolProfile
	Clock     func() time.Time

	// Snapshots caches indicator.Compute per timeframe so criteria
	// don't recompute EMA/RSI/etc. redundantly; populated by the
	// caller (filter.Filter) before evaluation.
	Snapshots map[candle.Timeframe]indicator.Snapshot
}

func (in Input) clock() time.Time {
	if in.Clock != nil {
		return in.Clock()
	}
	return time.Now()
}

func (in Input) isBullish() bool { return in.Direction == Buy }

// Criterion is one named, pure evaluation step.
type Criterion struct {
	Name     string
	Evaluate func(Input) Result
}
