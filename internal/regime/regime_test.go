package regime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func TestPairCorrelationPerfectlyCorrelated(t *testing.T) {
	a := ramp(100, 100, 1)
	b := ramp(100, 50, 2)
	c := PairCorrelation(a, b, 100)
	assert.InDelta(t, 1.0, c, 1e-9)
}

func TestPairCorrelationInverselyCorrelated(t *testing.T) {
	a := ramp(100, 100, 1)
	b := ramp(100, 200, -1)
	c := PairCorrelation(a, b, 100)
	assert.InDelta(t, -1.0, c, 1e-9)
}

func TestPairCorrelationTooShortIsZero(t *testing.T) {
	a := ramp(10, 100, 1)
	b := ramp(10, 50, 2)
	assert.Equal(t, 0.0, PairCorrelation(a, b, 100))
}

func TestClassifyRiskOn(t *testing.T) {
	a := Classify(0.8, 0.1)
	assert.Equal(t, RiskOn, a.Regime)
}

func TestClassifyRiskOff(t *testing.T) {
	a := Classify(-0.5, 0.1)
	assert.Equal(t, RiskOff, a.Regime)
}

func TestClassifySafeHaven(t *testing.T) {
	a := Classify(0.1, 0.8)
	assert.Equal(t, SafeHaven, a.Regime)
}

func TestClassifyNeutral(t *testing.T) {
	a := Classify(0.1, 0.1)
	assert.Equal(t, Neutral, a.Regime)
}

func TestParamsForClampsUnknownRegime(t *testing.T) {
	p := ParamsFor(Regime("BOGUS"))
	assert.Equal(t, 1.0, p.ConfidenceMultiplier)
}

func TestParamsForAlwaysWithinClampRange(t *testing.T) {
	for _, r := range []Regime{RiskOn, RiskOff, SafeHaven, Neutral} {
		p := ParamsFor(r)
		assert.GreaterOrEqual(t, p.ConfidenceMultiplier, 0.8)
		assert.LessOrEqual(t, p.ConfidenceMultiplier, 1.2)
		assert.GreaterOrEqual(t, p.SizeMultiplier, 0.5)
		assert.LessOrEqual(t, p.SizeMultiplier, 2.0)
	}
}
