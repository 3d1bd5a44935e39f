package mtf

import (
	"context"
	"testing"
	"time"

	"signalforge/internal/candle"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	bars map[candle.Timeframe][]candle.Candle
}

func (f fakeSource) GetCandles(ctx context.Context, symbol string, interval candle.Timeframe, count int) (candle.Series, error) {
	bars := f.bars[interval]
	return candle.NewSeries(symbol, interval, bars)
}

func seriesOf(n int, step time.Duration, anchor time.Time) []candle.Candle {
	out := make([]candle.Candle, n)
	start := anchor.Add(-time.Duration(n-1) * step)
	for i := 0; i < n; i++ {
		t := start.Add(time.Duration(i) * step)
		out[i] = candle.Candle{Timestamp: t, Open: 100, High: 101, Low: 99, Close: 100, Volume: 1}
	}
	return out
}

func TestLoadMTFAlignedSucceeds(t *testing.T) {
	anchor := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	src := fakeSource{bars: map[candle.Timeframe][]candle.Candle{
		candle.M15: seriesOf(210, 15*time.Minute, anchor),
		candle.H1:  seriesOf(210, time.Hour, anchor),
		candle.H4:  seriesOf(210, 4*time.Hour, anchor),
		candle.D1:  seriesOf(210, 24*time.Hour, anchor),
	}}
	l := New(src)
	view, err := l.LoadMTF(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	a, ok := view.Anchor()
	require.True(t, ok)
	assert.Equal(t, anchor, a)
}

func TestLoadMTFInsufficientBarsFails(t *testing.T) {
	anchor := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	src := fakeSource{bars: map[candle.Timeframe][]candle.Candle{
		candle.M15: seriesOf(10, 15*time.Minute, anchor),
		candle.H1:  seriesOf(210, time.Hour, anchor),
		candle.H4:  seriesOf(210, 4*time.Hour, anchor),
		candle.D1:  seriesOf(210, 24*time.Hour, anchor),
	}}
	l := New(src)
	_, err := l.LoadMTF(context.Background(), "BTCUSDT")
	assert.Error(t, err)
}

func TestLoadMTFMisalignedFails(t *testing.T) {
	anchor := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	future := anchor.Add(48 * time.Hour)
	src := fakeSource{bars: map[candle.Timeframe][]candle.Candle{
		candle.M15: seriesOf(210, 15*time.Minute, future),
		candle.H1:  seriesOf(210, time.Hour, anchor),
		candle.H4:  seriesOf(210, 4*time.Hour, anchor),
		candle.D1:  seriesOf(210, 24*time.Hour, anchor),
	}}
	l := New(src)
	_, err := l.LoadMTF(context.Background(), "BTCUSDT")
	assert.Error(t, err)
}
