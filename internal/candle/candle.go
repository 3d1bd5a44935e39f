// Package candle defines the core OHLCV data model shared by the
// indicator library, the signal pipeline, and the backtest engine.
package candle

import (
	"fmt"
	"time"
)

// Candle is one OHLCV record for a fixed interval. Immutable once
// ingested into a Series.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Timeframe is one of the four canonical multi-timeframe tags.
type Timeframe string

const (
	M15 Timeframe = "M15"
	H1  Timeframe = "H1"
	H4  Timeframe = "H4"
	D1  Timeframe = "D1"
)

// Series is an ordered, strictly-increasing-timestamp sequence of
// Candle for a single (symbol, interval). Series is immutable: callers
// that need a trailing subrange should use Tail, which shares the backing
// array rather than copying.
type Series struct {
	Symbol   string
	Interval Timeframe
	Bars     []Candle
}

// NewSeries validates and wraps a slice of candles into a Series.
// Returns an error if bars are empty, non-monotonic, or contain
// duplicate timestamps.
func NewSeries(symbol string, interval Timeframe, bars []Candle) (Series, error) {
	if len(bars) == 0 {
		return Series{}, fmt.Errorf("candle: empty series for %s %s", symbol, interval)
	}
	for i := 1; i < len(bars); i++ {
		if !bars[i].Timestamp.After(bars[i-1].Timestamp) {
			return Series{}, fmt.Errorf("candle: non-monotonic or duplicate timestamp at index %d for %s %s", i, symbol, interval)
		}
	}
	return Series{Symbol: symbol, Interval: interval, Bars: bars}, nil
}

// Len returns the number of bars.
func (s Series) Len() int { return len(s.Bars) }

// Last returns the most recent (last closed) bar. Panics if empty;
// callers are expected to have validated via NewSeries.
func (s Series) Last() Candle { return s.Bars[len(s.Bars)-1] }

// Closes returns the slice of close prices, most recent last.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, c := range s.Bars {
		out[i] = c.Close
	}
	return out
}

// Highs returns the slice of high prices, most recent last.
func (s Series) Highs() []float64 {
	out := make([]float64, len(s.Bars))
	for i, c := range s.Bars {
		out[i] = c.High
	}
	return out
}

// Lows returns the slice of low prices, most recent last.
func (s Series) Lows() []float64 {
	out := make([]float64, len(s.Bars))
	for i, c := range s.Bars {
		out[i] = c.Low
	}
	return out
}

// Volumes returns the slice of volumes, most recent last.
func (s Series) Volumes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, c := range s.Bars {
		out[i] = c.Volume
	}
	return out
}

// Tail returns the last n bars as a new Series sharing the backing
// array. If n >= Len(), returns s unchanged.
func (s Series) Tail(n int) Series {
	if n >= len(s.Bars) {
		return s
	}
	return Series{Symbol: s.Symbol, Interval: s.Interval, Bars: s.Bars[len(s.Bars)-n:]}
}

// MTFView is the simultaneous four-timeframe view of one symbol,
// required to all terminate at the same aligned bar close (D1 close
// is the anchor).
type MTFView struct {
	Symbol string
	Views  map[Timeframe]Series
}

// Get returns the Series for tf, and whether it is present.
func (v MTFView) Get(tf Timeframe) (Series, bool) {
	s, ok := v.Views[tf]
	return s, ok
}

// Anchor returns the D1 series' last bar close timestamp, the
// reference point all other timeframes must align to.
func (v MTFView) Anchor() (time.Time, bool) {
	d1, ok := v.Views[D1]
	if !ok || d1.Len() == 0 {
		return time.Time{}, false
	}
	return d1.Last().Timestamp, true
}
