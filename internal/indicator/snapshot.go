package indicator

import "signalforge/internal/candle"

// Snapshot is spec's IndicatorSnapshot: the most recent row of a
// Series augmented with every computed indicator value a criterion
// might need. Fields are pointers where the indicator can legitimately
// be undefined-until-warm; the evaluator treats a nil field as "fails
// safe" per spec §4.E.
type Snapshot struct {
	Series candle.Series

	EMA9   *float64
	EMA21  *float64
	EMA50  *float64
	EMA200 *float64
	SMA20  *float64

	RSI14 *float64

	MACD *MACDResult

	BB *BollingerResult

	ATR14 *float64

	Stoch *StochResult

	ADX14 *ADXResult

	VolumeRatio20 *float64
}

// Compute computes every spec §3 IndicatorSnapshot field from s's
// closes/highs/lows/volumes. Individual fields are left nil when the
// series is too short for that indicator's minimum length.
func Compute(s candle.Series) Snapshot {
	closes := s.Closes()
	highs := s.Highs()
	lows := s.Lows()
	volumes := s.Volumes()

	snap := Snapshot{Series: s}

	if v, ok := EMA(closes, 9); ok {
		snap.EMA9 = &v
	}
	if v, ok := EMA(closes, 21); ok {
		snap.EMA21 = &v
	}
	if v, ok := EMA(closes, 50); ok {
		snap.EMA50 = &v
	}
	if v, ok := EMA(closes, 200); ok {
		snap.EMA200 = &v
	}
	if v, ok := SMA(closes, 20); ok {
		snap.SMA20 = &v
	}
	if v, ok := RSI(closes, 14); ok {
		snap.RSI14 = &v
	}
	if v, ok := MACD(closes, 12, 26, 9); ok {
		snap.MACD = &v
	}
	if v, ok := Bollinger(closes, 20, 2); ok {
		snap.BB = &v
	}
	if v, ok := ATR(highs, lows, closes, 14); ok {
		snap.ATR14 = &v
	}
	if v, ok := Stoch(highs, lows, closes, 14, 3); ok {
		snap.Stoch = &v
	}
	if v, ok := ADX(highs, lows, closes, 14); ok {
		snap.ADX14 = &v
	}
	if len(volumes) >= 21 {
		if v, ok := VolumeRatio(volumes, 20); ok {
			snap.VolumeRatio20 = &v
		}
	}

	return snap
}

// Trend is the spec §4.E helper: bullish iff EMA21 > EMA50, bearish
// otherwise. Returns ok=false if either EMA is undefined.
func (s Snapshot) Trend() (bullish bool, ok bool) {
	if s.EMA21 == nil || s.EMA50 == nil {
		return false, false
	}
	return *s.EMA21 > *s.EMA50, true
}
