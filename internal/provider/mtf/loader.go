// Package mtf assembles spec §4.D's four-timeframe view (M15/H1/H4/D1)
// for one symbol, fanning the fetches out in parallel via
// golang.org/x/sync/errgroup the way the trading bot's worker pool
// fans out concurrent work, and validating that every timeframe
// terminates at the same aligned bar close.
package mtf

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"signalforge/internal/candle"
	"signalforge/internal/signalerr"
)

// CandleSource is the minimal dependency the loader needs from the
// market-data provider.
type CandleSource interface {
	GetCandles(ctx context.Context, symbol string, interval candle.Timeframe, count int) (candle.Series, error)
}

// Period is the wall-clock duration of one bar of a timeframe, used
// to check that lower timeframes align with the D1 anchor.
var Period = map[candle.Timeframe]int64{
	candle.M15: 15 * 60,
	candle.H1:  60 * 60,
	candle.H4:  4 * 60 * 60,
	candle.D1:  24 * 60 * 60,
}

const DefaultMinBars = 200

// Loader assembles an MTFView from a CandleSource.
type Loader struct {
	Source  CandleSource
	MinBars int
}

// New builds a Loader with the spec default minimum of 200 bars per
// timeframe.
func New(source CandleSource) *Loader {
	return &Loader{Source: source, MinBars: DefaultMinBars}
}

// LoadMTF fetches all four canonical timeframes in parallel and
// verifies they terminate at the same aligned bar: the D1 close
// defines the anchor, and each lower timeframe's latest close must be
// <= anchor + its own period (i.e. no timeframe runs ahead of the daily
// close). A lower timeframe that ends before the anchor is not
// rejected.
func (l *Loader) LoadMTF(ctx context.Context, symbol string) (candle.MTFView, error) {
	minBars := l.MinBars
	if minBars <= 0 {
		minBars = DefaultMinBars
	}

	timeframes := []candle.Timeframe{candle.M15, candle.H1, candle.H4, candle.D1}
	results := make([]candle.Series, len(timeframes))

	g, gctx := errgroup.WithContext(ctx)
	for i, tf := range timeframes {
		i, tf := i, tf
		g.Go(func() error {
			s, err := l.Source.GetCandles(gctx, symbol, tf, minBars)
			if err != nil {
				return fmt.Errorf("mtf: load %s: %w", tf, err)
			}
			if s.Len() < minBars {
				return signalerr.New(signalerr.KindInputInvalid, fmt.Sprintf("mtf: %s has %d bars, need >= %d", tf, s.Len(), minBars))
			}
			results[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return candle.MTFView{}, err
	}

	views := make(map[candle.Timeframe]candle.Series, len(timeframes))
	for i, tf := range timeframes {
		views[tf] = results[i]
	}

	anchor := views[candle.D1].Last().Timestamp
	for _, tf := range []candle.Timeframe{candle.M15, candle.H1, candle.H4} {
		last := views[tf].Last().Timestamp
		if last.Unix() > anchor.Unix()+Period[tf] {
			return candle.MTFView{}, signalerr.New(signalerr.KindInputInvalid,
				fmt.Sprintf("mtf: %s close %s is ahead of D1 anchor %s", tf, last, anchor))
		}
	}

	return candle.MTFView{Symbol: symbol, Views: views}, nil
}
