// Package mlvalidator implements spec §4.H: a thin wrapper around a
// Predict(features) oracle. Grounded on
// koshedutech-binance-trading-app/internal/ai/ml/predictor.go's
// PriceFeatures struct (feature-vector-as-typed-struct, not a raw
// map[string]float64), reworked to the ten features spec.md actually
// names and re-pointed at a pluggable Predictor interface instead of
// the teacher's single concrete heuristic implementation, since this
// package only owns the oracle contract and the approve/reject gate,
// not a specific model.
package mlvalidator

import (
	"time"

	"signalforge/internal/candle"
	"signalforge/internal/filter"
	"signalforge/internal/indicator"
	"signalforge/internal/provider/aux"
)

// Features is the deterministic feature vector derived from
// (Signal diagnostics, MTFView, AuxiliaryContext, wall_clock).
type Features struct {
	CriterionScore    float64 // fraction of criteria passed, 0-1
	RSI               float64
	TrendStrength     float64 // 0-1, derived from ADX
	VolumeProfile     float64 // volume_ratio_20
	SessionActive     bool
	Volatility        float64 // ATR as a fraction of price
	SpreadEstimate    float64
	MTFAlignmentScore float64 // fraction of timeframes agreeing
	NewsImpactFlag    bool
	HistoricalWinRate float64 // 0-1, caller-supplied prior
}

// DefaultApprovalThreshold is spec's 0.60 probability floor.
const DefaultApprovalThreshold = 0.60

// Predictor is the oracle contract: given features, return a
// probability in [0,1] and a short human-readable rationale.
type Predictor interface {
	Predict(features Features) (probability float64, rationale string, err error)
}

// Outcome is the result of running Validate.
type Outcome struct {
	Approved    bool
	Probability float64
	Rationale   string
	Tags        map[string]string
}

// Validate runs the predictor and applies the approval threshold. On
// predictor error, the signal is approved by default (never blocked by
// an unavailable model) and tagged "ml_unavailable", per spec §4.H and
// §7 (PredictorUnavailable: "approve-by-default and tag").
func Validate(p Predictor, features Features) Outcome {
	if p == nil {
		return Outcome{Approved: true, Probability: 0, Rationale: "no predictor configured", Tags: map[string]string{"ml_unavailable": "true"}}
	}
	prob, rationale, err := p.Predict(features)
	if err != nil {
		return Outcome{Approved: true, Probability: 0, Rationale: "predictor error: " + err.Error(), Tags: map[string]string{"ml_unavailable": "true"}}
	}
	return Outcome{
		Approved:    prob >= DefaultApprovalThreshold,
		Probability: prob,
		Rationale:   rationale,
		Tags:        map[string]string{},
	}
}

// BuildFeatures derives the Features vector deterministically from the
// filter decision, the MTF view's H1 indicator snapshot, the auxiliary
// context and the evaluation wall clock.
func BuildFeatures(decision filter.Decision, mtf candle.MTFView, auxCtx aux.Context, now time.Time, historicalWinRate float64) Features {
	f := Features{
		CriterionScore:    float64(decision.Score) / float64(maxInt(decision.Total, 1)),
		HistoricalWinRate: historicalWinRate,
	}

	agree := 0
	total := 0
	for _, r := range decision.Criteria {
		if r.Name == "trend_consistency" || r.Name == "mtf_alignment" {
			total++
			if r.Passed {
				agree++
			}
		}
	}
	if total > 0 {
		f.MTFAlignmentScore = float64(agree) / float64(total)
	}

	if h1, ok := mtf.Get(candle.H1); ok {
		snap := indicator.Compute(h1)
		price := h1.Last().Close
		if snap.RSI14 != nil {
			f.RSI = *snap.RSI14
		}
		if snap.ADX14 != nil {
			f.TrendStrength = clamp01(snap.ADX14.ADX / 50)
		}
		if snap.VolumeRatio20 != nil {
			f.VolumeProfile = *snap.VolumeRatio20
		}
		if snap.ATR14 != nil && price > 0 {
			f.Volatility = *snap.ATR14 / price
		}
		if snap.BB != nil && snap.BB.Middle > 0 {
			f.SpreadEstimate = (snap.BB.Upper - snap.BB.Lower) / snap.BB.Middle / 4
		}
	}

	hour := now.UTC().Hour()
	f.SessionActive = hour >= 13 && hour < 21 // broad overlap of major sessions

	f.NewsImpactFlag = len(auxCtx.NewsItems) > 0

	return f
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
