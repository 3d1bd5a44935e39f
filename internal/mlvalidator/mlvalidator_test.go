package mlvalidator

import (
	"errors"
	"testing"
	"time"

	"signalforge/internal/candle"
	"signalforge/internal/filter"
	"signalforge/internal/provider/aux"

	"github.com/stretchr/testify/assert"
)

type fakePredictor struct {
	prob float64
	err  error
}

func (f fakePredictor) Predict(features Features) (float64, string, error) {
	if f.err != nil {
		return 0, "", f.err
	}
	return f.prob, "fake prediction", nil
}

func TestValidateApprovesAboveThreshold(t *testing.T) {
	out := Validate(fakePredictor{prob: 0.75}, Features{})
	assert.True(t, out.Approved)
	assert.Equal(t, 0.75, out.Probability)
}

func TestValidateRejectsBelowThreshold(t *testing.T) {
	out := Validate(fakePredictor{prob: 0.4}, Features{})
	assert.False(t, out.Approved)
}

func TestValidateApprovesByDefaultOnPredictorError(t *testing.T) {
	out := Validate(fakePredictor{err: errors.New("model unavailable")}, Features{})
	assert.True(t, out.Approved)
	assert.Equal(t, "true", out.Tags["ml_unavailable"])
}

func TestValidateApprovesByDefaultWithNoPredictorConfigured(t *testing.T) {
	out := Validate(nil, Features{})
	assert.True(t, out.Approved)
	assert.Equal(t, "true", out.Tags["ml_unavailable"])
}

func TestBuildFeaturesSessionFlag(t *testing.T) {
	decision := filter.Decision{Score: 20, Total: 20}
	mtf := candle.MTFView{}
	now := time.Date(2026, 1, 1, 15, 0, 0, 0, time.UTC)
	f := BuildFeatures(decision, mtf, aux.Context{}, now, 0.5)
	assert.True(t, f.SessionActive)
	assert.Equal(t, 1.0, f.CriterionScore)
}
