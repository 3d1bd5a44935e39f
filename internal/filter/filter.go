// Package filter implements spec §4.F: the Ultra Filter that combines
// internal/filter/criteria's per-criterion results into one accept/
// reject FilterDecision. Grounded on
// koshedutech-binance-trading-app/internal/confluence/scorer.go's
// weighted-score-then-threshold shape, simplified to the spec's flat
// pass-count-vs-threshold rule since the criteria are declared boolean,
// not weighted.
package filter

import (
	"fmt"
	"time"

	"signalforge/internal/candle"
	"signalforge/internal/filter/criteria"
	"signalforge/internal/indicator"
	"signalforge/internal/metrics"
	"signalforge/internal/provider/aux"
)

// TierName is the named acceptance threshold the spec calls out.
type TierName string

const (
	TierUltra TierName = "ULTRA" // requires all 20 criteria
	TierElite TierName = "ELITE" // requires >= 17 of 20
)

// Decision is spec's FilterDecision: an ordered criteria list,
// aggregate score, and a human-readable summary.
type Decision struct {
	Accepted       bool
	Criteria       []criteria.Result
	Score          int
	Total          int
	OverallMessage string
}

// Filter evaluates a fixed, ordered criterion set against a threshold.
type Filter struct {
	Tier      TierName
	Criteria  []criteria.Criterion
	Threshold int
}

// NewUltra builds the strict 20/20 ULTRA tier filter.
func NewUltra() *Filter {
	cs := criteria.Tier20()
	return &Filter{Tier: TierUltra, Criteria: cs, Threshold: len(cs)}
}

// NewElite builds the 17/20 ELITE tier filter.
func NewElite() *Filter {
	return &Filter{Tier: TierElite, Criteria: criteria.Tier20(), Threshold: 17}
}

// buildSnapshots precomputes one indicator.Snapshot per timeframe
// present in the MTFView so every criterion reuses the same computed
// values instead of recomputing indicators per check.
func buildSnapshots(mtf candle.MTFView) map[candle.Timeframe]indicator.Snapshot {
	out := make(map[candle.Timeframe]indicator.Snapshot, len(mtf.Views))
	for tf, s := range mtf.Views {
		out[tf] = indicator.Compute(s)
	}
	return out
}

// Decide evaluates every criterion, in declared order, against mtf/aux
// for the given direction and returns the aggregate Decision. direction
// must be criteria.Buy or criteria.Sell — HOLD is a pipeline-level
// concept (no side to test), never passed here.
func (f *Filter) Decide(mtf candle.MTFView, auxCtx aux.Context, direction criteria.Direction, profile criteria.SymbolProfile) Decision {
	return f.DecideAt(mtf, auxCtx, direction, profile, nil)
}

// DecideAt is Decide with an injectable clock, used by criterion 16
// (session_timing) and by tests/backtests replaying historical time.
func (f *Filter) DecideAt(mtf candle.MTFView, auxCtx aux.Context, direction criteria.Direction, profile criteria.SymbolProfile, clock func() time.Time) Decision {
	in := criteria.Input{
		MTF:       mtf,
		Aux:       auxCtx,
		Direction: direction,
		Profile:   profile,
		Clock:     clock,
		Snapshots: buildSnapshots(mtf),
	}

	results := make([]criteria.Result, 0, len(f.Criteria))
	score := 0
	for _, c := range f.Criteria {
		r := c.Evaluate(in)
		if r.Passed {
			score++
		}
		results = append(results, r)
		metrics.RecordCriterion(string(f.Tier), c.Name, r.Passed)
	}

	accepted := score >= f.Threshold
	msg := fmt.Sprintf("%s %s: %d/%d criteria passed (threshold %d)", f.Tier, direction, score, len(f.Criteria), f.Threshold)
	if !accepted {
		msg = fmt.Sprintf("%s %s: rejected, %d/%d criteria passed (need %d)", f.Tier, direction, score, len(f.Criteria), f.Threshold)
	}

	return Decision{
		Accepted:       accepted,
		Criteria:       results,
		Score:          score,
		Total:          len(f.Criteria),
		OverallMessage: msg,
	}
}
