package signalerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindStringCoversAllConstants(t *testing.T) {
	kinds := []Kind{
		KindInputInvalid, KindNetworkError, KindRateLimited, KindTimeout,
		KindUpstreamMalformed, KindInsufficientCapital, KindCapacityExhausted,
		KindFilterRejected, KindPredictorUnavailable, KindRiskLimitBreached,
		KindCancelled, KindDeadline,
	}
	for _, k := range kinds {
		assert.NotEqual(t, "Unknown", k.String())
	}
	assert.Equal(t, "Unknown", Kind(999).String())
}

func TestNewIsNotRetryable(t *testing.T) {
	err := New(KindInputInvalid, "bad symbol")
	assert.False(t, err.Retryable)
	assert.Nil(t, err.Cause)
	assert.Equal(t, "InputInvalid: bad symbol", err.Error())
}

func TestWrapCarriesCauseAndIsNotRetryableByDefault(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := Wrap(KindUpstreamMalformed, "parse failed", cause)
	assert.False(t, err.Retryable)
	assert.Equal(t, cause, err.Unwrap())
	assert.Contains(t, err.Error(), "parse failed")
	assert.Contains(t, err.Error(), "dial tcp: timeout")
}

func TestWrapRetryableMarksRetryable(t *testing.T) {
	cause := errors.New("503")
	err := WrapRetryable(KindRateLimited, "upstream busy", cause)
	assert.True(t, err.Retryable)
}

func TestIsMatchesDirectError(t *testing.T) {
	err := New(KindCancelled, "ctx done")
	assert.True(t, Is(err, KindCancelled))
	assert.False(t, Is(err, KindDeadline))
}

func TestIsUnwrapsWrappedError(t *testing.T) {
	inner := New(KindNetworkError, "connection reset")
	wrapped := fmt.Errorf("fetch candles: %w", inner)
	assert.True(t, Is(wrapped, KindNetworkError))
}

func TestIsFalseForNonSignalError(t *testing.T) {
	assert.False(t, Is(errors.New("plain"), KindInputInvalid))
}

func TestErrorsAsExtractsConcreteType(t *testing.T) {
	inner := New(KindDeadline, "context deadline exceeded")
	wrapped := fmt.Errorf("pipeline stage: %w", inner)

	var serr *Error
	require.True(t, errors.As(wrapped, &serr))
	assert.Equal(t, KindDeadline, serr.Kind)
}
