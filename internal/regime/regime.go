// Package regime implements spec §4.G: the correlation/regime
// adjuster. Grounded on
// "Forex expert/shared/correlation_analyzer.py"'s DynamicCorrelationAnalyzer
// (regime thresholds, risk-basket averaging, gold/safe-haven check,
// size-multiplier clamp) translated from its ad hoc dict-returning
// Python into a typed Regime/Params pair, and on
// koshedutech-binance-trading-app/internal/confluence's pattern of
// annotating a decision with a small struct of multipliers rather than
// mutating global state. Uses gonum.org/v1/gonum/stat for the Pearson
// correlation itself rather than hand-rolling it, the way the pack's
// other quant/portfolio repos (aristath-portfolioManager,
// raykavin-backnrun) reach for gonum for exactly this kind of
// statistic.
package regime

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Regime is the classified market state.
type Regime string

const (
	RiskOn    Regime = "RISK_ON"
	RiskOff   Regime = "RISK_OFF"
	SafeHaven Regime = "SAFE_HAVEN"
	Neutral   Regime = "NEUTRAL"
)

// Thresholds mirror the Python analyzer's regime_thresholds dict.
const (
	RiskOnThreshold    = 0.6
	RiskOffThreshold   = -0.4
	SafeHavenThreshold = 0.7
)

// Params are the regime-dependent adjustments applied to a candidate
// signal. Multipliers are pre-clamped to the spec's declared ranges.
type Params struct {
	ConfidenceMultiplier   float64 // 0.8-1.2
	SizeMultiplier         float64 // 0.5-2.0
	StopDistanceMultiplier float64 // 0.8-2.0
	SignalWeightVector     map[string]float64
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// paramsTable is the regime -> Params mapping, grounded on the
// Python analyzer's should_adjust_position_size/get_regime_confidence_score
// constants.
var paramsTable = map[Regime]Params{
	RiskOn:    {ConfidenceMultiplier: 1.1, SizeMultiplier: 1.2, StopDistanceMultiplier: 1.0, SignalWeightVector: map[string]float64{"trend": 1.2, "mean_reversion": 0.8}},
	RiskOff:   {ConfidenceMultiplier: 0.9, SizeMultiplier: 0.8, StopDistanceMultiplier: 1.5, SignalWeightVector: map[string]float64{"trend": 0.8, "mean_reversion": 1.2}},
	SafeHaven: {ConfidenceMultiplier: 1.0, SizeMultiplier: 1.0, StopDistanceMultiplier: 1.2, SignalWeightVector: map[string]float64{"trend": 1.0, "mean_reversion": 1.0}},
	Neutral:   {ConfidenceMultiplier: 1.0, SizeMultiplier: 1.0, StopDistanceMultiplier: 1.0, SignalWeightVector: map[string]float64{"trend": 1.0, "mean_reversion": 1.0}},
}

// ParamsFor returns the Params for a classified regime, with every
// multiplier clamped to its spec-mandated range regardless of the
// table's stored value (defense against a future bad table edit).
func ParamsFor(r Regime) Params {
	p, ok := paramsTable[r]
	if !ok {
		p = paramsTable[Neutral]
	}
	p.ConfidenceMultiplier = clamp(p.ConfidenceMultiplier, 0.8, 1.2)
	p.SizeMultiplier = clamp(p.SizeMultiplier, 0.5, 2.0)
	p.StopDistanceMultiplier = clamp(p.StopDistanceMultiplier, 0.8, 2.0)
	return p
}

// Assessment is the outcome of Classify: the regime plus the inputs
// that drove it, for tagging onto a Signal.
type Assessment struct {
	Regime               Regime
	RiskBasketCorrelation float64
	GoldCorrelation       float64
	Description           string
}

// Classify implements the Python analyzer's analyze_market_regime
// decision tree: risk-on/off dominate, falling back to a gold/safe-haven
// check, defaulting to neutral.
func Classify(riskBasketCorrelation, goldCorrelation float64) Assessment {
	switch {
	case riskBasketCorrelation > RiskOnThreshold:
		return Assessment{Regime: RiskOn, RiskBasketCorrelation: riskBasketCorrelation, GoldCorrelation: goldCorrelation,
			Description: "risk-on: positive correlation across the risk basket"}
	case riskBasketCorrelation < RiskOffThreshold:
		return Assessment{Regime: RiskOff, RiskBasketCorrelation: riskBasketCorrelation, GoldCorrelation: goldCorrelation,
			Description: "risk-off: risk basket decoupling"}
	case goldCorrelation > SafeHavenThreshold:
		return Assessment{Regime: SafeHaven, RiskBasketCorrelation: riskBasketCorrelation, GoldCorrelation: goldCorrelation,
			Description: "safe-haven: correlated with gold"}
	default:
		return Assessment{Regime: Neutral, RiskBasketCorrelation: riskBasketCorrelation, GoldCorrelation: goldCorrelation,
			Description: "neutral correlation environment"}
	}
}

// PairCorrelation computes the Pearson correlation coefficient between
// two equal-length, time-aligned price series over a rolling window
// (spec default 100 bars). Returns 0 if either series is too short or
// constant (zero variance makes correlation undefined).
func PairCorrelation(a, b []float64, window int) float64 {
	if window <= 1 || len(a) < window || len(b) < window {
		return 0
	}
	wa := a[len(a)-window:]
	wb := b[len(b)-window:]
	corr := stat.Correlation(wa, wb, nil)
	if corr != corr { // NaN check: zero-variance input
		return 0
	}
	return corr
}

// ClassifyFromSeries computes Classify's inputs directly from price
// series: the mean signed correlation of candidate vs each member of a risk
// basket, and candidate vs a gold proxy series.
func ClassifyFromSeries(candidate []float64, riskBasket [][]float64, gold []float64, window int) Assessment {
	if len(riskBasket) == 0 {
		return Classify(0, PairCorrelation(candidate, gold, window))
	}
	sum := 0.0
	for _, series := range riskBasket {
		sum += PairCorrelation(candidate, series, window)
	}
	mean := sum / float64(len(riskBasket))
	return Classify(mean, PairCorrelation(candidate, gold, window))
}

// Tags renders an Assessment and its derived Params as Signal tags
// (spec §4.G: "Results are annotated into the Signal's tags").
func (a Assessment) Tags(p Params) map[string]string {
	return map[string]string{
		"regime":             string(a.Regime),
		"regime_description": a.Description,
		"confidence_mult":    fmt.Sprintf("%.3f", p.ConfidenceMultiplier),
		"size_mult":          fmt.Sprintf("%.3f", p.SizeMultiplier),
		"stop_distance_mult": fmt.Sprintf("%.3f", p.StopDistanceMultiplier),
	}
}
