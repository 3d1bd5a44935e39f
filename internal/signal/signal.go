// Package signal wires the pipeline modules — multi-timeframe loading,
// the ultra/elite criteria filter, the correlation/regime adjuster,
// the ML validator, and the execution planner — into the single
// Generate entry point that produces spec §3's Signal. Grounded on
// koshedutech-binance-trading-app/internal/scanner's top-level
// scan-then-decide orchestration shape, generalized from its
// single-stage scoring into the spec's multi-stage accept/adjust/
// validate/plan sequence.
package signal

import (
	"context"
	"time"

	"github.com/google/uuid"

	"signalforge/internal/candle"
	"signalforge/internal/execplan"
	"signalforge/internal/filter"
	"signalforge/internal/filter/criteria"
	"signalforge/internal/indicator"
	"signalforge/internal/mlvalidator"
	"signalforge/internal/provider/aux"
	"signalforge/internal/provider/mtf"
	"signalforge/internal/regime"
	"signalforge/internal/signalerr"
)

// Direction is spec §3 Signal's direction field, including HOLD —
// distinct from criteria.Direction, which only ever tests a BUY/SELL
// hypothesis.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
	Hold Direction = "HOLD"
)

// Signal is spec §3's Signal record.
type Signal struct {
	Symbol        string
	Direction     Direction
	EntryPrice    float64
	StopLoss      float64
	TakeProfit1   float64
	TakeProfit2   float64
	TakeProfit3   float64
	ConfidencePct float64
	GeneratedAt   time.Time
	Diagnostics   filter.Decision
	Plan          execplan.Plan
	Tags          map[string]string
}

// Pipeline owns every collaborator Generate needs. Regime and
// Predictor are optional: a nil Regime skips the correlation
// adjustment stage, and a nil Predictor makes mlvalidator.Validate
// approve by default (tagged ml_unavailable), matching spec §4.H's
// predictor-error fallback.
type Pipeline struct {
	MTF               *mtf.Loader
	Aux               *aux.Provider
	Filter            *filter.Filter
	Profile           criteria.SymbolProfile
	Predictor         mlvalidator.Predictor
	ExecConfig        execplan.Config
	Clock             func() time.Time
	HistoricalWinRate func(symbol string) float64
}

func (p *Pipeline) clock() time.Time {
	if p.Clock != nil {
		return p.Clock()
	}
	return time.Now()
}

func (p *Pipeline) winRate(symbol string) float64 {
	if p.HistoricalWinRate != nil {
		return p.HistoricalWinRate(symbol)
	}
	return 0.5
}

// Generate runs the full D->E->G->H->I pipeline for one (symbol,
// hypothesis direction) pair and returns the resulting Signal. A
// rejection at any gate (criteria filter, ML validator) yields a HOLD
// Signal carrying diagnostics rather than an error, since "do nothing"
// is an expected, not exceptional, pipeline outcome.
func (p *Pipeline) Generate(ctx context.Context, symbol string, direction criteria.Direction, correlationInputs *RegimeInputs) (Signal, error) {
	mtfView, err := p.MTF.LoadMTF(ctx, symbol)
	if err != nil {
		return Signal{}, signalerr.Wrap(signalerr.KindUpstreamMalformed, "signal: mtf load failed", err)
	}
	auxCtx := p.Aux.GetAux(ctx, symbol)

	decision := p.Filter.DecideAt(mtfView, auxCtx, direction, p.Profile, p.Clock)
	if !decision.Accepted {
		return Signal{
			Symbol:      symbol,
			Direction:   Hold,
			GeneratedAt: p.clock(),
			Diagnostics: decision,
			Tags:        map[string]string{"reason": "filter_rejected", "run_id": uuid.NewString()},
		}, nil
	}

	h1, ok := mtfView.Get(candle.H1)
	if !ok || h1.Len() == 0 {
		return Signal{}, signalerr.New(signalerr.KindInputInvalid, "signal: missing H1 series for sizing")
	}
	m15, ok := mtfView.Get(candle.M15)
	entryPrice := h1.Last().Close
	if ok && m15.Len() > 0 {
		entryPrice = m15.Last().Close
	}
	snap := indicator.Compute(h1)
	atr := 0.0
	if snap.ATR14 != nil {
		atr = *snap.ATR14
	}

	side := execplan.Long
	stopLoss := entryPrice - p.Profile.RiskATRMultiple*atr
	if direction == criteria.Sell {
		side = execplan.Short
		stopLoss = entryPrice + p.Profile.RiskATRMultiple*atr
	}

	tags := map[string]string{"run_id": uuid.NewString()}

	var regimeParams *regime.Params
	if correlationInputs != nil {
		assessment := regime.ClassifyFromSeries(correlationInputs.Candidate, correlationInputs.RiskBasket, correlationInputs.Gold, correlationInputs.Window)
		params := regime.ParamsFor(assessment.Regime)
		regimeParams = &params
		for k, v := range assessment.Tags(params) {
			tags[k] = v
		}
	}

	confidencePct := float64(decision.Score) / float64(decision.Total) * 100
	if regimeParams != nil {
		confidencePct *= regimeParams.ConfidenceMultiplier
		if confidencePct > 100 {
			confidencePct = 100
		}
	}

	features := mlvalidator.BuildFeatures(decision, mtfView, auxCtx, p.clock(), p.winRate(symbol))
	outcome := mlvalidator.Validate(p.Predictor, features)
	for k, v := range outcome.Tags {
		tags[k] = v
	}
	if !outcome.Approved {
		tags["reason"] = "ml_rejected"
		return Signal{
			Symbol:      symbol,
			Direction:   Hold,
			GeneratedAt: p.clock(),
			Diagnostics: decision,
			Tags:        tags,
		}, nil
	}
	if outcome.Tags["ml_unavailable"] == "" {
		confidencePct *= outcome.Probability
	}

	plan := execplan.Build(side, entryPrice, stopLoss, atr, p.ExecConfig)

	dir := Buy
	if direction == criteria.Sell {
		dir = Sell
	}

	sig := Signal{
		Symbol:        symbol,
		Direction:     dir,
		EntryPrice:    plan.OptimizedEntry,
		StopLoss:      plan.Stops.Initial,
		ConfidencePct: confidencePct,
		GeneratedAt:   p.clock(),
		Diagnostics:   decision,
		Plan:          plan,
		Tags:          tags,
	}
	for _, target := range plan.Targets {
		switch target.Label {
		case "TP1":
			sig.TakeProfit1 = target.Price
		case "TP2":
			sig.TakeProfit2 = target.Price
		case "TP3":
			sig.TakeProfit3 = target.Price
		}
	}
	return sig, nil
}

// RegimeInputs carries the raw return series Generate needs to run the
// correlation/regime adjuster. Window is the trailing bar count used
// for pairwise correlation.
type RegimeInputs struct {
	Candidate  []float64
	RiskBasket [][]float64
	Gold       []float64
	Window     int
}
