package criteria

import (
	"fmt"
	"math"

	"signalforge/internal/candle"
	"signalforge/internal/indicator"
)

// snap returns the cached Snapshot for tf, computing it on demand if
// the caller didn't pre-populate Input.Snapshots.
func snap(in Input, tf candle.Timeframe) (indicator.Snapshot, bool) {
	if in.Snapshots != nil {
		if s, ok := in.Snapshots[tf]; ok {
			return s, true
		}
	}
	series, ok := in.MTF.Get(tf)
	if !ok {
		return indicator.Snapshot{}, false
	}
	return indicator.Compute(series), true
}

func fail(name, msg string) Result { return Result{Name: name, Passed: false, Message: msg} }
func pass(name, msg string) Result { return Result{Name: name, Passed: true, Message: msg} }

// Criterion1MTFAlignment requires H1, H4 and D1 trend direction to
// agree with the direction under test.
var Criterion1MTFAlignment = Criterion{Name: "mtf_alignment", Evaluate: func(in Input) Result {
	name := "mtf_alignment"
	for _, tf := range []candle.Timeframe{candle.H1, candle.H4, candle.D1} {
		s, ok := snap(in, tf)
		if !ok {
			return fail(name, fmt.Sprintf("%s snapshot unavailable", tf))
		}
		bullish, ok := s.Trend()
		if !ok {
			return fail(name, fmt.Sprintf("%s trend undefined (EMA21/EMA50 not warm)", tf))
		}
		if bullish != in.isBullish() {
			return fail(name, fmt.Sprintf("%s trend disagrees with %s", tf, in.Direction))
		}
	}
	return pass(name, "H1/H4/D1 trend aligned")
}}

// Criterion2PriceEMA requires the M15 close on the correct side of its
// EMA21.
var Criterion2PriceEMA = Criterion{Name: "price_ema", Evaluate: func(in Input) Result {
	name := "price_ema"
	s, ok := snap(in, candle.M15)
	if !ok || s.EMA21 == nil {
		return fail(name, "M15 EMA21 unavailable")
	}
	close := s.Series.Last().Close
	if in.isBullish() && close > *s.EMA21 {
		return pass(name, "M15 close above EMA21")
	}
	if !in.isBullish() && close < *s.EMA21 {
		return pass(name, "M15 close below EMA21")
	}
	return fail(name, "M15 close on wrong side of EMA21")
}}

// Criterion3RSIMomentum requires H1 RSI in the directional momentum
// band: (40,70) bullish, (30,60) bearish.
var Criterion3RSIMomentum = Criterion{Name: "rsi_momentum", Evaluate: func(in Input) Result {
	name := "rsi_momentum"
	s, ok := snap(in, candle.H1)
	if !ok || s.RSI14 == nil {
		return fail(name, "H1 RSI14 unavailable")
	}
	rsi := *s.RSI14
	if in.isBullish() {
		if rsi > 40 && rsi < 70 {
			return pass(name, "H1 RSI in bullish momentum band")
		}
		return fail(name, "H1 RSI outside (40,70)")
	}
	if rsi > 30 && rsi < 60 {
		return pass(name, "H1 RSI in bearish momentum band")
	}
	return fail(name, "H1 RSI outside (30,60)")
}}

// Criterion4MACDConfirmation requires the H1 MACD line on the correct
// side of its signal line.
var Criterion4MACDConfirmation = Criterion{Name: "macd_confirmation", Evaluate: func(in Input) Result {
	name := "macd_confirmation"
	s, ok := snap(in, candle.H1)
	if !ok || s.MACD == nil {
		return fail(name, "H1 MACD unavailable")
	}
	if in.isBullish() && s.MACD.Line > s.MACD.Signal {
		return pass(name, "H1 MACD line above signal")
	}
	if !in.isBullish() && s.MACD.Line < s.MACD.Signal {
		return pass(name, "H1 MACD line below signal")
	}
	return fail(name, "H1 MACD disagrees with direction")
}}

// Criterion5Stochastic requires either a fresh %K/%D cross in the
// neutral zone, or both lines already on the directional side of the
// midline (continuation).
var Criterion5Stochastic = Criterion{Name: "stochastic", Evaluate: func(in Input) Result {
	name := "stochastic"
	s, ok := snap(in, candle.H1)
	if !ok || s.Stoch == nil {
		return fail(name, "H1 stochastic unavailable")
	}
	k, d := s.Stoch.K, s.Stoch.D
	if in.isBullish() {
		if k > d && k > 20 && k < 80 {
			return pass(name, "H1 %K crossed above %D in neutral zone")
		}
		if k > 50 && d > 50 {
			return pass(name, "H1 %K and %D both above midline")
		}
		return fail(name, "H1 stochastic does not confirm bullish")
	}
	if k < d && k > 20 && k < 80 {
		return pass(name, "H1 %K crossed below %D in neutral zone")
	}
	if k < 50 && d < 50 {
		return pass(name, "H1 %K and %D both below midline")
	}
	return fail(name, "H1 stochastic does not confirm bearish")
}}

// Criterion6ADXStrength requires trend strength: the average of H1 and
// H4 ADX must be >= 20.
var Criterion6ADXStrength = Criterion{Name: "adx_strength", Evaluate: func(in Input) Result {
	name := "adx_strength"
	h1, ok1 := snap(in, candle.H1)
	h4, ok4 := snap(in, candle.H4)
	if !ok1 || !ok4 || h1.ADX14 == nil || h4.ADX14 == nil {
		return fail(name, "H1/H4 ADX unavailable")
	}
	avg := (h1.ADX14.ADX + h4.ADX14.ADX) / 2
	if avg >= 20 {
		return pass(name, fmt.Sprintf("avg ADX %.1f >= 20", avg))
	}
	return fail(name, fmt.Sprintf("avg ADX %.1f < 20", avg))
}}

// Criterion7Volume requires M15 volume ratio above 0.8 (not a dead
// tape).
var Criterion7Volume = Criterion{Name: "volume", Evaluate: func(in Input) Result {
	name := "volume"
	s, ok := snap(in, candle.M15)
	if !ok || s.VolumeRatio20 == nil {
		return fail(name, "M15 volume ratio unavailable")
	}
	if *s.VolumeRatio20 > 0.8 {
		return pass(name, fmt.Sprintf("M15 volume ratio %.2f > 0.8", *s.VolumeRatio20))
	}
	return fail(name, fmt.Sprintf("M15 volume ratio %.2f <= 0.8", *s.VolumeRatio20))
}}

// Criterion8BBPosition requires the M15 close on the directionally
// correct side of the Bollinger middle band.
var Criterion8BBPosition = Criterion{Name: "bb_position", Evaluate: func(in Input) Result {
	name := "bb_position"
	s, ok := snap(in, candle.M15)
	if !ok || s.BB == nil {
		return fail(name, "M15 Bollinger unavailable")
	}
	close := s.Series.Last().Close
	if in.isBullish() && close > s.BB.Middle {
		return pass(name, "M15 close above BB middle")
	}
	if !in.isBullish() && close < s.BB.Middle {
		return pass(name, "M15 close below BB middle")
	}
	return fail(name, "M15 close on wrong side of BB middle")
}}

// Criterion9ATRVolatility requires H1 ATR above the symbol's floor so
// the signal isn't generated in a dead market.
var Criterion9ATRVolatility = Criterion{Name: "atr_volatility", Evaluate: func(in Input) Result {
	name := "atr_volatility"
	s, ok := snap(in, candle.H1)
	if !ok || s.ATR14 == nil {
		return fail(name, "H1 ATR14 unavailable")
	}
	if *s.ATR14 > in.Profile.ATRVolatilityFloor {
		return pass(name, fmt.Sprintf("H1 ATR %.4f above floor %.4f", *s.ATR14, in.Profile.ATRVolatilityFloor))
	}
	return fail(name, fmt.Sprintf("H1 ATR %.4f at or below floor %.4f", *s.ATR14, in.Profile.ATRVolatilityFloor))
}}

// Criterion10EMASpacing requires the H1 EMA21/EMA50 gap to exceed the
// symbol's floor, filtering out a flat, converging moving-average mess.
var Criterion10EMASpacing = Criterion{Name: "ema_spacing", Evaluate: func(in Input) Result {
	name := "ema_spacing"
	s, ok := snap(in, candle.H1)
	if !ok || s.EMA21 == nil || s.EMA50 == nil {
		return fail(name, "H1 EMA21/EMA50 unavailable")
	}
	spacing := math.Abs(*s.EMA21 - *s.EMA50)
	if spacing > in.Profile.EMASpacingFloor {
		return pass(name, fmt.Sprintf("H1 EMA spacing %.4f above floor", spacing))
	}
	return fail(name, fmt.Sprintf("H1 EMA spacing %.4f at or below floor", spacing))
}}

// Criterion11HTFConfirmation requires the D1 close on the correct side
// of its EMA50, the highest-timeframe trend filter.
var Criterion11HTFConfirmation = Criterion{Name: "htf_confirmation", Evaluate: func(in Input) Result {
	name := "htf_confirmation"
	s, ok := snap(in, candle.D1)
	if !ok || s.EMA50 == nil {
		return fail(name, "D1 EMA50 unavailable")
	}
	close := s.Series.Last().Close
	if in.isBullish() && close > *s.EMA50 {
		return pass(name, "D1 close above EMA50")
	}
	if !in.isBullish() && close < *s.EMA50 {
		return pass(name, "D1 close below EMA50")
	}
	return fail(name, "D1 close on wrong side of EMA50")
}}

// Criterion12PriceAction requires the last 3 H1 bars to show higher
// highs and higher lows (bullish) or lower highs and lower lows
// (bearish).
var Criterion12PriceAction = Criterion{Name: "price_action", Evaluate: func(in Input) Result {
	name := "price_action"
	s, ok := in.MTF.Get(candle.H1)
	if !ok || s.Len() < 3 {
		return fail(name, "H1 insufficient bars")
	}
	last3 := s.Tail(3).Bars
	higherHighs := last3[1].High > last3[0].High && last3[2].High > last3[1].High
	higherLows := last3[1].Low > last3[0].Low && last3[2].Low > last3[1].Low
	lowerHighs := last3[1].High < last3[0].High && last3[2].High < last3[1].High
	lowerLows := last3[1].Low < last3[0].Low && last3[2].Low < last3[1].Low
	if in.isBullish() && higherHighs && higherLows {
		return pass(name, "H1 last 3 bars show higher highs and higher lows")
	}
	if !in.isBullish() && lowerHighs && lowerLows {
		return pass(name, "H1 last 3 bars show lower highs and lower lows")
	}
	return fail(name, "H1 last 3 bars do not confirm directional structure")
}}

// Criterion13MomentumAcceleration requires the last 3 H1 MACD
// histogram values to share the directional sign and be growing in
// magnitude.
var Criterion13MomentumAcceleration = Criterion{Name: "momentum_acceleration", Evaluate: func(in Input) Result {
	name := "momentum_acceleration"
	s, ok := in.MTF.Get(candle.H1)
	if !ok {
		return fail(name, "H1 unavailable")
	}
	hist, ok := indicator.HistogramSeries(s.Closes(), 12, 26, 9, 3)
	if !ok {
		return fail(name, "H1 MACD histogram history unavailable")
	}
	dirOK := true
	for _, h := range hist {
		if in.isBullish() && h <= 0 {
			dirOK = false
		}
		if !in.isBullish() && h >= 0 {
			dirOK = false
		}
	}
	if !dirOK {
		return fail(name, "H1 MACD histogram sign disagrees with direction")
	}
	if math.Abs(hist[2]) > math.Abs(hist[1]) && math.Abs(hist[1]) >= math.Abs(hist[0]) {
		return pass(name, "H1 MACD histogram accelerating")
	}
	return fail(name, "H1 MACD histogram not accelerating")
}}

// swingLows returns the lows of bars that are local minima over a
// 2-bar window on each side.
func swingLows(bars []candle.Candle) []float64 {
	var out []float64
	for i := 2; i < len(bars)-2; i++ {
		l := bars[i].Low
		if l < bars[i-1].Low && l < bars[i-2].Low && l < bars[i+1].Low && l < bars[i+2].Low {
			out = append(out, l)
		}
	}
	return out
}

func swingHighs(bars []candle.Candle) []float64 {
	var out []float64
	for i := 2; i < len(bars)-2; i++ {
		h := bars[i].High
		if h > bars[i-1].High && h > bars[i-2].High && h > bars[i+1].High && h > bars[i+2].High {
			out = append(out, h)
		}
	}
	return out
}

// Criterion14SRRespect requires the current price to sit within 2% of
// the nearest H4 swing support (bullish) or resistance (bearish). With
// no swing points in history, passes by default (nothing to violate).
var Criterion14SRRespect = Criterion{Name: "sr_respect", Evaluate: func(in Input) Result {
	name := "sr_respect"
	s, ok := in.MTF.Get(candle.H4)
	if !ok {
		return fail(name, "H4 unavailable")
	}
	price := s.Last().Close
	const band = 0.02
	if in.isBullish() {
		lows := swingLows(s.Bars)
		if len(lows) == 0 {
			return pass(name, "no H4 swing lows on record, default pass")
		}
		nearest := lows[0]
		for _, l := range lows {
			if math.Abs(price-l) < math.Abs(price-nearest) {
				nearest = l
			}
		}
		if math.Abs(price-nearest)/price <= band {
			return pass(name, "price within 2% of H4 swing support")
		}
		return fail(name, "price not near any H4 swing support")
	}
	highs := swingHighs(s.Bars)
	if len(highs) == 0 {
		return pass(name, "no H4 swing highs on record, default pass")
	}
	nearest := highs[0]
	for _, h := range highs {
		if math.Abs(price-h) < math.Abs(price-nearest) {
			nearest = h
		}
	}
	if math.Abs(price-nearest)/price <= band {
		return pass(name, "price within 2% of H4 swing resistance")
	}
	return fail(name, "price not near any H4 swing resistance")
}}

// Criterion15NoDivergence rejects signals where price made new
// progress over the last 10 H1 bars but RSI moved meaningfully the
// other way (bearish divergence against a long, bullish divergence
// against a short).
var Criterion15NoDivergence = Criterion{Name: "no_divergence", Evaluate: func(in Input) Result {
	name := "no_divergence"
	s, ok := in.MTF.Get(candle.H1)
	if !ok || s.Len() < 11 {
		return fail(name, "H1 insufficient bars")
	}
	closes := s.Closes()
	rsiNow, ok1 := indicator.RSI(closes, 14)
	rsiPrev, ok2 := indicator.RSI(closes[:len(closes)-10], 14)
	if !ok1 || !ok2 {
		return pass(name, "RSI history unavailable, default pass")
	}
	priceNow := closes[len(closes)-1]
	pricePrev := closes[len(closes)-11]
	if in.isBullish() {
		if priceNow > pricePrev && rsiNow < rsiPrev-5 {
			return fail(name, "bearish RSI divergence against long")
		}
		return pass(name, "no disqualifying divergence")
	}
	if priceNow < pricePrev && rsiNow > rsiPrev+5 {
		return fail(name, "bullish RSI divergence against short")
	}
	return pass(name, "no disqualifying divergence")
}}

// Criterion16SessionTiming requires the evaluation clock to fall in the
// symbol's active trading-session window (UTC hours).
var Criterion16SessionTiming = Criterion{Name: "session_timing", Evaluate: func(in Input) Result {
	name := "session_timing"
	hour := in.clock().UTC().Hour()
	start, end := in.Profile.ActiveSessionStartUTC, in.Profile.ActiveSessionEndUTC
	if start == end {
		return pass(name, "no session restriction configured")
	}
	inWindow := false
	if start < end {
		inWindow = hour >= start && hour < end
	} else {
		inWindow = hour >= start || hour < end // window wraps midnight
	}
	if inWindow {
		return pass(name, fmt.Sprintf("hour %02d UTC within active session", hour))
	}
	return fail(name, fmt.Sprintf("hour %02d UTC outside active session [%02d,%02d)", hour, start, end))
}}

// Criterion17RiskReward requires the implied reward/risk, using the
// symbol's risk/reward ATR multiples on H1, to be at least 2.0.
var Criterion17RiskReward = Criterion{Name: "risk_reward", Evaluate: func(in Input) Result {
	name := "risk_reward"
	s, ok := snap(in, candle.H1)
	if !ok || s.ATR14 == nil {
		return fail(name, "H1 ATR14 unavailable")
	}
	risk := in.Profile.RiskATRMultiple * (*s.ATR14)
	reward := in.Profile.RewardATRMultiple * (*s.ATR14)
	if risk <= 0 {
		return fail(name, "non-positive risk distance")
	}
	rr := reward / risk
	if rr >= 2.0 {
		return pass(name, fmt.Sprintf("reward/risk %.2f >= 2.0", rr))
	}
	return fail(name, fmt.Sprintf("reward/risk %.2f < 2.0", rr))
}}

// Criterion18TrendConsistency requires at least 3 of the 4 timeframes
// to agree on EMA21-vs-EMA50 trend direction.
var Criterion18TrendConsistency = Criterion{Name: "trend_consistency", Evaluate: func(in Input) Result {
	name := "trend_consistency"
	agree := 0
	total := 0
	for _, tf := range []candle.Timeframe{candle.M15, candle.H1, candle.H4, candle.D1} {
		s, ok := snap(in, tf)
		if !ok {
			continue
		}
		bullish, ok := s.Trend()
		if !ok {
			continue
		}
		total++
		if bullish == in.isBullish() {
			agree++
		}
	}
	if total < 3 {
		return fail(name, "insufficient timeframes with defined trend")
	}
	if agree >= 3 {
		return pass(name, fmt.Sprintf("%d/%d timeframes agree", agree, total))
	}
	return fail(name, fmt.Sprintf("only %d/%d timeframes agree", agree, total))
}}

// Criterion19MarketStructure requires the last 10 H1 bars to exhibit at
// least one higher-low (bullish) or lower-high (bearish) swing,
// confirming the broader structure is still intact. Default pass when
// there isn't enough history to judge.
var Criterion19MarketStructure = Criterion{Name: "market_structure", Evaluate: func(in Input) Result {
	name := "market_structure"
	s, ok := in.MTF.Get(candle.H1)
	if !ok || s.Len() < 10 {
		return pass(name, "insufficient H1 history, default pass")
	}
	recent := s.Tail(10).Bars
	lows := swingLows(recent)
	highs := swingHighs(recent)
	if in.isBullish() {
		for i := 1; i < len(lows); i++ {
			if lows[i] > lows[i-1] {
				return pass(name, "H1 structure shows a higher low")
			}
		}
		if len(lows) == 0 {
			return pass(name, "no H1 swing lows to contradict structure")
		}
		return fail(name, "H1 structure shows no higher low")
	}
	for i := 1; i < len(highs); i++ {
		if highs[i] < highs[i-1] {
			return pass(name, "H1 structure shows a lower high")
		}
	}
	if len(highs) == 0 {
		return pass(name, "no H1 swing highs to contradict structure")
	}
	return fail(name, "H1 structure shows no lower high")
}}

// Criterion20Composite is the asset-class-specific composite: for
// crypto, funding rate, BTC dominance and fear/greed extremes; for
// forex, a placeholder correlation-direction check delegated to the
// internal/regime package in the full pipeline. Any missing auxiliary
// field fails safe (is simply skipped), consistent with aux.Context's
// partial-absence contract.
var Criterion20Composite = Criterion{Name: "crypto_forex_composite", Evaluate: func(in Input) Result {
	name := "crypto_forex_composite"
	switch in.Profile.Class {
	case ClassForex:
		return pass(name, "forex composite delegated to regime adjuster")
	default:
		return evalCryptoComposite(in, name)
	}
}}

func evalCryptoComposite(in Input, name string) Result {
	checks := 0
	agree := 0

	if in.Aux.FundingRate != nil {
		checks++
		// Contrarian: a long wants a funding rate that is not deeply
		// positive (crowded longs paying shorts), and vice versa.
		if in.isBullish() && *in.Aux.FundingRate < 0.0003 {
			agree++
		}
		if !in.isBullish() && *in.Aux.FundingRate > -0.0003 {
			agree++
		}
	}
	if in.Aux.FearGreedScore != nil {
		checks++
		if in.isBullish() && *in.Aux.FearGreedScore <= 25 {
			agree++
		}
		if !in.isBullish() && *in.Aux.FearGreedScore >= 75 {
			agree++
		}
	}
	if in.Aux.BTCDominancePct != nil && in.Profile.Class == ClassCrypto {
		checks++
		dom := *in.Aux.BTCDominancePct
		// Longs want dominance above 50% (capital sitting in BTC);
		// shorts want it below 50% (capital rotating into alts).
		if in.isBullish() && dom > 50 {
			agree++
		}
		if !in.isBullish() && dom < 50 {
			agree++
		}
	}

	if checks == 0 {
		return pass(name, "no auxiliary data available, default pass")
	}
	if agree*2 >= checks {
		return pass(name, fmt.Sprintf("%d/%d auxiliary checks favor %s", agree, checks, in.Direction))
	}
	return fail(name, fmt.Sprintf("%d/%d auxiliary checks favor %s", agree, checks, in.Direction))
}
