// Package execplan implements spec §4.I: turns a raw directional
// decision into a tranched ExecutionPlan with staged targets and stop
// management. Grounded on
// koshedutech-binance-trading-app/internal/risk/manager.go's
// stop/target calculation style (plain float64 arithmetic off ATR and
// entry price, no external dependency), generalized from the teacher's
// single-entry/single-stop model to the spec's tranched entry and
// three-stage target ladder.
package execplan

import "math"

// Side is the position direction this plan serves.
type Side string

const (
	Long  Side = "LONG"
	Short Side = "SHORT"
)

// Tranche is one scheduled partial entry.
type Tranche struct {
	Share   float64 // fraction of total size, sums to 1.0 across all tranches
	Trigger float64 // price at which this tranche fills
	Label   string
}

// Stops is the stop-management ladder.
type Stops struct {
	Initial        float64
	BreakevenAfter string // target label after which stop moves to breakeven
	TrailingAfter  string // target label after which an ATR trailing stop activates
	TrailingATRMul float64
}

// Target is one staged take-profit level.
type Target struct {
	Price        float64
	ShareToClose float64 // fraction of the *original* size closed at this target
	RRMultiple   float64
	Label        string
}

// Plan is spec's ExecutionPlan.
type Plan struct {
	OptimizedEntry float64
	Tranches       []Tranche
	Stops          Stops
	Targets        []Target
}

// Config holds the tranche/target ratios, all defaulted per spec §4.I.
type Config struct {
	PullbackATRMultiple     float64 // default 0.5
	ConfirmationATRMultiple float64 // default 0.25
	TP1RRMultiple           float64 // default 1.0
	TP2RRMultiple           float64 // default 2.0
	TP3RRMultiple           float64 // default 3.5
	TrailingATRMultiple     float64 // default 1.5
}

// DefaultConfig returns the spec's default ratios.
func DefaultConfig() Config {
	return Config{
		PullbackATRMultiple:     0.5,
		ConfirmationATRMultiple: 0.25,
		TP1RRMultiple:           1.0,
		TP2RRMultiple:           2.0,
		TP3RRMultiple:           3.5,
		TrailingATRMultiple:     1.5,
	}
}

// Build constructs a Plan for entry/stopLoss/atr and side, per spec
// §4.I's tranche split (50/30/20) and staged targets (TP1 close 50% of
// remaining == 50% of original, TP2 close 30% of original, TP3 close
// the remainder).
func Build(side Side, entry, stopLoss, atr float64, cfg Config) Plan {
	sign := 1.0
	if side == Short {
		sign = -1.0
	}
	r := math.Abs(entry - stopLoss)

	pullback := entry - sign*cfg.PullbackATRMultiple*atr
	confirmation := entry + sign*cfg.ConfirmationATRMultiple*atr

	tranches := []Tranche{
		{Share: 0.50, Trigger: entry, Label: "initial"},
		{Share: 0.30, Trigger: pullback, Label: "pullback"},
		{Share: 0.20, Trigger: confirmation, Label: "confirmation"},
	}

	targets := []Target{
		{Price: entry + sign*cfg.TP1RRMultiple*r, ShareToClose: 0.50, RRMultiple: cfg.TP1RRMultiple, Label: "TP1"},
		{Price: entry + sign*cfg.TP2RRMultiple*r, ShareToClose: 0.30, RRMultiple: cfg.TP2RRMultiple, Label: "TP2"},
		{Price: entry + sign*cfg.TP3RRMultiple*r, ShareToClose: 0.20, RRMultiple: cfg.TP3RRMultiple, Label: "TP3"},
	}

	return Plan{
		OptimizedEntry: entry,
		Tranches:       tranches,
		Stops: Stops{
			Initial:        stopLoss,
			BreakevenAfter: "TP1",
			TrailingAfter:  "TP2",
			TrailingATRMul: cfg.TrailingATRMultiple,
		},
		Targets: targets,
	}
}

// TrancheShareSum is a convenience check used by tests and callers
// validating the "shares sum to 1.0" invariant from spec §3.
func (p Plan) TrancheShareSum() float64 {
	sum := 0.0
	for _, t := range p.Tranches {
		sum += t.Share
	}
	return sum
}
