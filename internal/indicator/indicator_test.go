package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flat(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func TestSMA(t *testing.T) {
	v := []float64{1, 2, 3, 4, 5}
	got, ok := SMA(v, 5)
	require.True(t, ok)
	assert.InDelta(t, 3.0, got, 1e-9)

	_, ok = SMA(v, 6)
	assert.False(t, ok)
}

func TestEMAConstantSeriesConverges(t *testing.T) {
	v := flat(50, 100)
	got, ok := EMA(v, 20)
	require.True(t, ok)
	assert.InDelta(t, 100, got, 1e-9)
}

func TestEMAReferentialTransparency(t *testing.T) {
	v := ramp(40, 10, 0.5)
	a, _ := EMA(v, 21)
	b, _ := EMA(append([]float64{}, v...), 21)
	assert.Equal(t, a, b)
}

func TestRSIFlatIsHundredPerPolicy(t *testing.T) {
	v := flat(30, 100)
	got, ok := RSI(v, 14)
	require.True(t, ok)
	// No gains or losses -> avgLoss 0 -> RSI defined as 100 per policy.
	assert.Equal(t, 100.0, got)
}

func TestRSIBounds(t *testing.T) {
	v := ramp(30, 100, 1) // strictly increasing
	got, ok := RSI(v, 14)
	require.True(t, ok)
	assert.GreaterOrEqual(t, got, 0.0)
	assert.LessOrEqual(t, got, 100.0)
}

func TestBollingerMiddleIsSMA(t *testing.T) {
	v := ramp(25, 1, 1)
	bb, ok := Bollinger(v, 20, 2)
	require.True(t, ok)
	sma, _ := SMA(v, 20)
	assert.InDelta(t, sma, bb.Middle, 1e-9)
	assert.Greater(t, bb.Upper, bb.Middle)
	assert.Less(t, bb.Lower, bb.Middle)
}

func TestATRZeroRangeIsZero(t *testing.T) {
	closes := flat(20, 100)
	highs := flat(20, 100)
	lows := flat(20, 100)
	got, ok := ATR(highs, lows, closes, 14)
	require.True(t, ok)
	assert.InDelta(t, 0, got, 1e-9)
}

func TestStochBounds(t *testing.T) {
	closes := ramp(30, 10, 1)
	highs := ramp(30, 10.5, 1)
	lows := ramp(30, 9.5, 1)
	got, ok := Stoch(highs, lows, closes, 14, 3)
	require.True(t, ok)
	assert.GreaterOrEqual(t, got.K, 0.0)
	assert.LessOrEqual(t, got.K, 100.0)
}

func TestADXMissingHistoryDefault(t *testing.T) {
	closes := flat(10, 100)
	highs := flat(10, 101)
	lows := flat(10, 99)
	got, ok := ADX(highs, lows, closes, 14)
	require.True(t, ok)
	assert.Equal(t, DefaultADX, got.ADX)
}

func TestVolumeRatioDivideByZeroIsIndeterminate(t *testing.T) {
	vols := flat(21, 0)
	_, ok := VolumeRatio(vols, 20)
	assert.False(t, ok)
}

func TestMACDHistogramSeriesReturnsLastThreeValues(t *testing.T) {
	v := ramp(60, 100, 1)
	hist, ok := HistogramSeries(v, 12, 26, 9, 3)
	require.True(t, ok)
	require.Len(t, hist, 3)
	for _, h := range hist {
		assert.False(t, math.IsNaN(h))
	}
}
