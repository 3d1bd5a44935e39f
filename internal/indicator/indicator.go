// Package indicator implements pure, deterministic functions over a
// candle.Series: EMA/SMA, RSI, MACD, Bollinger Bands, ATR, Stochastic,
// ADX, and volume ratio. Every function is referentially transparent —
// same input slice, same output — and holds no package-level state.
package indicator

import "math"

// EMA computes the exponential moving average over closes with period
// n (alpha = 2/(n+1)), seeded by the SMA of the first n values. Returns
// ok=false if there are fewer than n values (undefined-until-warm).
func EMA(values []float64, n int) (float64, bool) {
	if n <= 0 || len(values) < n {
		return 0, false
	}
	alpha := 2.0 / float64(n+1)
	ema := sma(values[:n])
	for i := n; i < len(values); i++ {
		ema = values[i]*alpha + ema*(1-alpha)
	}
	return ema, true
}

// EMASeries returns the EMA value aligned with every index from n-1
// onward; earlier indices are NaN. Used when callers need the last
// three values (e.g. MACD histogram acceleration, criterion 13).
func EMASeries(values []float64, n int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if n <= 0 || len(values) < n {
		return out
	}
	alpha := 2.0 / float64(n+1)
	ema := sma(values[:n])
	out[n-1] = ema
	for i := n; i < len(values); i++ {
		ema = values[i]*alpha + ema*(1-alpha)
		out[i] = ema
	}
	return out
}

// SMA computes the simple moving average of the last n values.
func SMA(values []float64, n int) (float64, bool) {
	if n <= 0 || len(values) < n {
		return 0, false
	}
	return sma(values[len(values)-n:]), true
}

func sma(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Stdev computes the population standard deviation of the last n
// values around their mean.
func Stdev(values []float64, n int) (float64, bool) {
	if n <= 0 || len(values) < n {
		return 0, false
	}
	window := values[len(values)-n:]
	mean := sma(window)
	variance := 0.0
	for _, v := range window {
		d := v - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(n)), true
}

// RSI computes the Wilder-smoothed Relative Strength Index over
// period n. Requires n+1 values. Division-by-zero (no losses) yields
// 100; this is the documented "indeterminate" edge handled by the
// numeric policy as a bounded value, not NaN.
func RSI(values []float64, n int) (float64, bool) {
	if n <= 0 || len(values) < n+1 {
		return 0, false
	}
	start := 0
	var avgGain, avgLoss float64
	for i := start + 1; i <= start+n; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}
	avgGain /= float64(n)
	avgLoss /= float64(n)

	// Wilder smoothing over any remaining values beyond the seed window.
	for i := start + n + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(n-1) + gain) / float64(n)
		avgLoss = (avgLoss*float64(n-1) + loss) / float64(n)
	}

	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), true
}

// MACDResult holds the three MACD outputs.
type MACDResult struct {
	Line      float64
	Signal    float64
	Histogram float64
}

// MACD computes MACD(fast, slow, signal) where the signal line is the
// EMA(signal) of the MACD line series (not an approximation of the
// current value — the teacher's version took a shortcut here; this
// spec requires the real signal-line EMA since criterion 13 needs
// multiple histogram values).
func MACD(values []float64, fast, slow, signalN int) (MACDResult, bool) {
	if len(values) < slow+signalN {
		return MACDResult{}, false
	}
	lineSeries := MACDLineSeries(values, fast, slow)
	// Build the sub-series of non-NaN MACD line values to seed the signal EMA.
	var clean []float64
	for _, v := range lineSeries {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) < signalN {
		return MACDResult{}, false
	}
	signal, ok := EMA(clean, signalN)
	if !ok {
		return MACDResult{}, false
	}
	line := clean[len(clean)-1]
	return MACDResult{Line: line, Signal: signal, Histogram: line - signal}, true
}

// MACDLineSeries returns the MACD line (fastEMA - slowEMA) aligned to
// every index, NaN before slow-1.
func MACDLineSeries(values []float64, fast, slow int) []float64 {
	fastSeries := EMASeries(values, fast)
	slowSeries := EMASeries(values, slow)
	out := make([]float64, len(values))
	for i := range out {
		if math.IsNaN(fastSeries[i]) || math.IsNaN(slowSeries[i]) {
			out[i] = math.NaN()
			continue
		}
		out[i] = fastSeries[i] - slowSeries[i]
	}
	return out
}

// HistogramSeries returns the last count MACD histogram values (most
// recent last), used by criterion 13 (momentum acceleration).
func HistogramSeries(values []float64, fast, slow, signalN, count int) ([]float64, bool) {
	lineSeries := MACDLineSeries(values, fast, slow)
	var cleanIdx []int
	for i, v := range lineSeries {
		if !math.IsNaN(v) {
			cleanIdx = append(cleanIdx, i)
		}
	}
	if len(cleanIdx) < signalN+count-1 {
		return nil, false
	}
	out := make([]float64, 0, count)
	for k := len(cleanIdx) - count; k < len(cleanIdx); k++ {
		upto := cleanIdx[k]
		// EMA of the clean MACD line values up to and including upto.
		var clean []float64
		for _, idx := range cleanIdx {
			if idx > upto {
				break
			}
			clean = append(clean, lineSeries[idx])
		}
		if len(clean) < signalN {
			return nil, false
		}
		signal, ok := EMA(clean, signalN)
		if !ok {
			return nil, false
		}
		out = append(out, clean[len(clean)-1]-signal)
	}
	return out, true
}

// BollingerResult holds the three Bollinger Band outputs.
type BollingerResult struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// Bollinger computes Bollinger Bands(n, k): middle = SMA(n), bands =
// middle +/- k*stdev(n).
func Bollinger(values []float64, n int, k float64) (BollingerResult, bool) {
	middle, ok := SMA(values, n)
	if !ok {
		return BollingerResult{}, false
	}
	sd, ok := Stdev(values, n)
	if !ok {
		return BollingerResult{}, false
	}
	return BollingerResult{Upper: middle + k*sd, Middle: middle, Lower: middle - k*sd}, true
}

// trueRange computes max(H-L, |H-Cprev|, |L-Cprev|) for bar i against
// the previous close.
func trueRange(highs, lows, closes []float64, i int) float64 {
	if i == 0 {
		return highs[0] - lows[0]
	}
	hl := highs[i] - lows[i]
	hc := math.Abs(highs[i] - closes[i-1])
	lc := math.Abs(lows[i] - closes[i-1])
	return math.Max(hl, math.Max(hc, lc))
}

// ATR computes the Wilder-smoothed Average True Range over period n.
func ATR(highs, lows, closes []float64, n int) (float64, bool) {
	if n <= 0 || len(closes) < n+1 {
		return 0, false
	}
	trs := atrSeriesInternal(highs, lows, closes, n)
	if trs == nil {
		return 0, false
	}
	return trs[len(trs)-1], true
}

// atrSeriesInternal returns the Wilder-smoothed ATR value for every
// bar from index n onward (1-indexed count of n+1 warm bars).
func atrSeriesInternal(highs, lows, closes []float64, n int) []float64 {
	if len(highs) < n+1 {
		return nil
	}
	tr := make([]float64, len(closes))
	for i := range closes {
		tr[i] = trueRange(highs, lows, closes, i)
	}
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = math.NaN()
	}
	seed := 0.0
	for i := 1; i <= n; i++ {
		seed += tr[i]
	}
	seed /= float64(n)
	out[n] = seed
	atr := seed
	for i := n + 1; i < len(closes); i++ {
		atr = (atr*float64(n-1) + tr[i]) / float64(n)
		out[i] = atr
	}
	return out
}

// StochResult holds %K and %D.
type StochResult struct {
	K float64
	D float64
}

// Stoch computes the Stochastic Oscillator: %K over kPeriod, %D as the
// dPeriod-SMA of the %K series.
func Stoch(highs, lows, closes []float64, kPeriod, dPeriod int) (StochResult, bool) {
	if len(closes) < kPeriod+dPeriod-1 {
		return StochResult{}, false
	}
	kSeries := make([]float64, dPeriod)
	for j := 0; j < dPeriod; j++ {
		end := len(closes) - (dPeriod - 1 - j)
		window := end - kPeriod
		hh := highs[window]
		ll := lows[window]
		for i := window; i < end; i++ {
			if highs[i] > hh {
				hh = highs[i]
			}
			if lows[i] < ll {
				ll = lows[i]
			}
		}
		if hh == ll {
			kSeries[j] = 50
			continue
		}
		kSeries[j] = 100 * (closes[end-1] - ll) / (hh - ll)
	}
	d := sma(kSeries)
	return StochResult{K: kSeries[len(kSeries)-1], D: d}, true
}

// ADXResult holds +DI, -DI and ADX.
type ADXResult struct {
	PlusDI  float64
	MinusDI float64
	ADX     float64
}

// DefaultADX is the missing-history fallback value mandated by spec
// §4.A ("Missing-history default = 25").
const DefaultADX = 25.0

// ADX computes Wilder's Average Directional Index over period n. On
// insufficient history it returns DefaultADX (25) per spec, with
// ok=true since this is a defined fallback, not an error.
func ADX(highs, lows, closes []float64, n int) (ADXResult, bool) {
	if n <= 0 || len(closes) < 2*n+1 {
		return ADXResult{PlusDI: 0, MinusDI: 0, ADX: DefaultADX}, true
	}

	plusDM := make([]float64, len(closes))
	minusDM := make([]float64, len(closes))
	tr := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		upMove := highs[i] - highs[i-1]
		downMove := lows[i-1] - lows[i]
		if upMove > downMove && upMove > 0 {
			plusDM[i] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i] = downMove
		}
		tr[i] = trueRange(highs, lows, closes, i)
	}

	smooth := func(series []float64, n int) []float64 {
		out := make([]float64, len(series))
		seed := 0.0
		for i := 1; i <= n; i++ {
			seed += series[i]
		}
		out[n] = seed
		for i := n + 1; i < len(series); i++ {
			out[i] = out[i-1] - out[i-1]/float64(n) + series[i]
		}
		return out
	}

	smTR := smooth(tr, n)
	smPlusDM := smooth(plusDM, n)
	smMinusDM := smooth(minusDM, n)

	dx := make([]float64, len(closes))
	for i := n; i < len(closes); i++ {
		if smTR[i] == 0 {
			continue
		}
		plusDI := 100 * smPlusDM[i] / smTR[i]
		minusDI := 100 * smMinusDM[i] / smTR[i]
		sum := plusDI + minusDI
		if sum == 0 {
			continue
		}
		dx[i] = 100 * math.Abs(plusDI-minusDI) / sum
	}

	// Wilder-smooth DX into ADX, seeded by the simple average of the
	// first n DX values starting at 2n.
	start := 2 * n
	if start >= len(closes) {
		return ADXResult{ADX: DefaultADX}, true
	}
	seedSum := 0.0
	for i := n; i < start; i++ {
		seedSum += dx[i]
	}
	adx := seedSum / float64(n)
	for i := start; i < len(closes); i++ {
		adx = (adx*float64(n-1) + dx[i]) / float64(n)
	}

	lastTR := smTR[len(closes)-1]
	plusDI, minusDI := 0.0, 0.0
	if lastTR != 0 {
		plusDI = 100 * smPlusDM[len(closes)-1] / lastTR
		minusDI = 100 * smMinusDM[len(closes)-1] / lastTR
	}

	return ADXResult{PlusDI: plusDI, MinusDI: minusDI, ADX: adx}, true
}

// VolumeRatio computes current volume / SMA(n) of the n volumes before
// it (the current bar is not part of the average). Division by
// zero is treated as indeterminate (returns ok=false) so criteria fail
// safe per the numeric policy.
func VolumeRatio(volumes []float64, n int) (float64, bool) {
	avg, ok := SMA(volumes[:len(volumes)-1], n)
	if !ok || avg == 0 {
		return 0, false
	}
	return volumes[len(volumes)-1] / avg, true
}
