package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackendSetGetDelete(t *testing.T) {
	m := NewMemoryBackend()
	ctx := context.Background()

	_, err := m.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, m.Set(ctx, "k", "v", 0))
	v, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	require.NoError(t, m.Delete(ctx, "k"))
	_, err = m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryBackendExpiresByTTL(t *testing.T) {
	m := NewMemoryBackend()
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "k", "v", time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	_, err := m.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

type jsonPayload struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

func TestJSONCacheRoundTrips(t *testing.T) {
	c := JSONCache{Backend: NewMemoryBackend()}
	ctx := context.Background()
	want := jsonPayload{Symbol: "BTCUSDT", Price: 65000.5}

	require.NoError(t, c.SetJSON(ctx, "sig", want, time.Minute))

	var got jsonPayload
	require.NoError(t, c.GetJSON(ctx, "sig", &got))
	assert.Equal(t, want, got)
}

func TestJSONCacheGetMissPropagatesErrMiss(t *testing.T) {
	c := JSONCache{Backend: NewMemoryBackend()}
	var got jsonPayload
	err := c.GetJSON(context.Background(), "absent", &got)
	assert.True(t, errors.Is(err, ErrMiss))
}

func TestHostLimiterAllowGrantsFirstRequest(t *testing.T) {
	h := NewHostLimiter(1)
	assert.True(t, h.Allow())
}

func TestHostLimiterWaitReturnsWhenTokenAvailable(t *testing.T) {
	h := NewHostLimiter(1000)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := h.Wait(ctx)
	assert.NoError(t, err)
}

func TestNewHostLimiterDefaultsNonPositiveRate(t *testing.T) {
	h := NewHostLimiter(0)
	assert.NotNil(t, h.limiter)
}

func TestHostLimiterReportTokensDoesNotPanic(t *testing.T) {
	h := NewHostLimiter(5)
	assert.NotPanics(t, func() { h.ReportTokens("api.binance.com") })
}
