package filter

import (
	"testing"
	"time"

	"signalforge/internal/candle"
	"signalforge/internal/filter/criteria"
	"signalforge/internal/provider/aux"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trendSeries(tf candle.Timeframe, n int, start, step float64, interval time.Duration) candle.Series {
	bars := make([]candle.Candle, n)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	price := start
	for i := 0; i < n; i++ {
		bars[i] = candle.Candle{Timestamp: t0.Add(time.Duration(i) * interval), Open: price, High: price + 5, Low: price - 5, Close: price, Volume: 1000}
		price += step
	}
	s, err := candle.NewSeries("BTCUSDT", tf, bars)
	if err != nil {
		panic(err)
	}
	return s
}

func uptrendMTF() candle.MTFView {
	return candle.MTFView{Symbol: "BTCUSDT", Views: map[candle.Timeframe]candle.Series{
		candle.M15: trendSeries(candle.M15, 260, 10000, 5, 15*time.Minute),
		candle.H1:  trendSeries(candle.H1, 260, 10000, 20, time.Hour),
		candle.H4:  trendSeries(candle.H4, 260, 10000, 80, 4*time.Hour),
		candle.D1:  trendSeries(candle.D1, 260, 10000, 480, 24*time.Hour),
	}}
}

func TestUltraFilterThresholdIsAllCriteria(t *testing.T) {
	f := NewUltra()
	assert.Equal(t, 20, f.Threshold)
	assert.Equal(t, TierUltra, f.Tier)
}

func TestEliteFilterThresholdIs17(t *testing.T) {
	f := NewElite()
	assert.Equal(t, 17, f.Threshold)
}

func TestDecidePreservesCriteriaOrder(t *testing.T) {
	f := NewElite()
	mtf := uptrendMTF()
	decision := f.Decide(mtf, aux.Context{}, criteria.Buy, criteria.DefaultSymbolProfile())
	require.Len(t, decision.Criteria, 20)
	assert.Equal(t, "mtf_alignment", decision.Criteria[0].Name)
	assert.Equal(t, "crypto_forex_composite", decision.Criteria[19].Name)
	assert.Equal(t, 20, decision.Total)
}

func TestDecideIsDeterministic(t *testing.T) {
	f := NewElite()
	mtf := uptrendMTF()
	fixedClock := func() time.Time { return time.Date(2026, 1, 1, 14, 0, 0, 0, time.UTC) }
	d1 := f.DecideAt(mtf, aux.Context{}, criteria.Buy, criteria.DefaultSymbolProfile(), fixedClock)
	d2 := f.DecideAt(mtf, aux.Context{}, criteria.Buy, criteria.DefaultSymbolProfile(), fixedClock)
	assert.Equal(t, d1, d2)
}
