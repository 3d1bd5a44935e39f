package aux

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFunding struct{ rate float64 }

func (f fakeFunding) FetchFundingRate(ctx context.Context, symbol string) (float64, error) {
	return f.rate, nil
}

type failingOI struct{}

func (failingOI) FetchOpenInterestUSD(ctx context.Context, symbol string) (float64, error) {
	return 0, errors.New("upstream down")
}

func TestGetAuxPartialFailureLeavesFieldAbsent(t *testing.T) {
	p := New()
	p.Funding = fakeFunding{rate: 0.0001}
	p.OI = failingOI{}

	got := p.GetAux(context.Background(), "BTCUSDT")
	require.NotNil(t, got.FundingRate)
	assert.InDelta(t, 0.0001, *got.FundingRate, 1e-12)
	assert.Nil(t, got.OpenInterestUSD)
}

func TestGetAuxNoFetchersConfiguredIsAllAbsent(t *testing.T) {
	p := New()
	got := p.GetAux(context.Background(), "BTCUSDT")
	assert.Nil(t, got.FundingRate)
	assert.Nil(t, got.OpenInterestUSD)
	assert.Nil(t, got.BTCDominancePct)
	assert.Nil(t, got.FearGreedScore)
	assert.Nil(t, got.NewsItems)
}
