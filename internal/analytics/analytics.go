// Package analytics computes spec §4.K's post-run backtest metrics and
// renders them as a tearsheet. Grounded on
// koshedutech-binance-trading-app/internal/backtest/engine.go's
// calculateMetrics/calculateMaxDrawdown/calculateSharpeRatio shape,
// extended with the spec's risk-adjusted, trade-stats, advanced and
// cost-drag metric groups and a real math.Sqrt/gonum stat foundation
// in place of the teacher's hand-rolled Newton's-method sqrt.
package analytics

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"signalforge/internal/backtest"
)

// Basic is spec §4.K's basic trade-count metrics.
type Basic struct {
	TotalTrades    int
	WinningTrades  int
	LosingTrades   int
	WinRatePct     float64
	GrossProfit    float64
	GrossLoss      float64
	NetProfit      float64
	ProfitFactor   float64
	ROIPct         float64
}

// RiskAdjusted is spec §4.K's risk-adjusted return metrics.
type RiskAdjusted struct {
	SharpeRatio          float64
	SortinoRatio         float64
	CalmarRatio          float64
	AnnualizedVolatility float64
	MaxDrawdownPct       float64
	MaxDrawdownDuration  time.Duration
}

// TradeStats is spec §4.K's per-trade statistical profile.
type TradeStats struct {
	AvgTradeDuration    time.Duration
	MedianTradeDuration time.Duration
	TP1HitRatePct       float64
	TP2HitRatePct       float64
	ExitReasonHistogram map[string]int
	MaxConsecutiveWins  int
	MaxConsecutiveLosses int
	ExpectancyPerTrade  float64
	ExposureTimePct     float64
}

// Advanced is spec §4.K's advanced return metrics.
type Advanced struct {
	CAGRPct         float64
	Turnover        float64
	RecoveryFactor  float64
}

// Costs is spec §4.K's cost-accounting group.
type Costs struct {
	TotalFees     float64
	TotalSlippage float64
	CostDragPct   float64
}

// Metrics is the full spec §4.K Metrics record.
type Metrics struct {
	Basic        Basic
	RiskAdjusted RiskAdjusted
	TradeStats   TradeStats
	Advanced     Advanced
	Costs        Costs
}

// Compute derives Metrics from a completed backtest.Result.
// barsPerYear annualizes the volatility/Sharpe/CAGR figures for the
// series' bar interval (e.g. 24*365 for hourly bars, 365 for daily).
func Compute(result backtest.Result, initialCapital, barsPerYear float64) Metrics {
	m := Metrics{}
	m.Basic = computeBasic(result, initialCapital)
	m.TradeStats = computeTradeStats(result)
	m.RiskAdjusted = computeRiskAdjusted(result, barsPerYear)
	m.Advanced = computeAdvanced(result, initialCapital, m.RiskAdjusted.MaxDrawdownPct, barsPerYear)
	if m.RiskAdjusted.MaxDrawdownPct > 0 {
		m.RiskAdjusted.CalmarRatio = m.Advanced.CAGRPct / m.RiskAdjusted.MaxDrawdownPct
	}
	m.Costs = computeCosts(result, m.Basic.NetProfit)
	return m
}

func computeBasic(result backtest.Result, initialCapital float64) Basic {
	b := Basic{TotalTrades: len(result.ClosedPositions)}
	for _, p := range result.ClosedPositions {
		if p.RealizedPnL > 0 {
			b.WinningTrades++
			b.GrossProfit += p.RealizedPnL
		} else {
			b.LosingTrades++
			b.GrossLoss += math.Abs(p.RealizedPnL)
		}
	}
	if b.TotalTrades > 0 {
		b.WinRatePct = float64(b.WinningTrades) / float64(b.TotalTrades) * 100
	}
	if b.GrossLoss > 0 {
		b.ProfitFactor = b.GrossProfit / b.GrossLoss
	}
	b.NetProfit = b.GrossProfit - b.GrossLoss
	if initialCapital > 0 {
		b.ROIPct = b.NetProfit / initialCapital * 100
	}
	return b
}

func computeTradeStats(result backtest.Result) TradeStats {
	ts := TradeStats{ExitReasonHistogram: map[string]int{}}
	if len(result.ClosedPositions) == 0 {
		return ts
	}

	durations := make([]time.Duration, 0, len(result.ClosedPositions))
	var tp1Hits, tp2Hits int
	var winStreak, lossStreak int
	var expectancySum float64

	for _, p := range result.ClosedPositions {
		if p.TP1Hit {
			tp1Hits++
		}
		if p.TP2Hit {
			tp2Hits++
		}
		for _, f := range p.Fills {
			ts.ExitReasonHistogram[f.Reason]++
		}
		if len(p.Fills) > 0 {
			durations = append(durations, p.Fills[len(p.Fills)-1].Time.Sub(p.EntryTime))
		}

		if p.RealizedPnL > 0 {
			winStreak++
			lossStreak = 0
		} else {
			lossStreak++
			winStreak = 0
		}
		if winStreak > ts.MaxConsecutiveWins {
			ts.MaxConsecutiveWins = winStreak
		}
		if lossStreak > ts.MaxConsecutiveLosses {
			ts.MaxConsecutiveLosses = lossStreak
		}
		expectancySum += p.RealizedPnL
	}

	n := len(result.ClosedPositions)
	ts.TP1HitRatePct = float64(tp1Hits) / float64(n) * 100
	ts.TP2HitRatePct = float64(tp2Hits) / float64(n) * 100
	ts.ExpectancyPerTrade = expectancySum / float64(n)
	ts.AvgTradeDuration = averageDuration(durations)
	ts.MedianTradeDuration = medianDuration(durations)
	ts.ExposureTimePct = exposureTimePct(result)
	return ts
}

func averageDuration(ds []time.Duration) time.Duration {
	if len(ds) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range ds {
		total += d
	}
	return total / time.Duration(len(ds))
}

func medianDuration(ds []time.Duration) time.Duration {
	if len(ds) == 0 {
		return 0
	}
	sorted := append([]time.Duration{}, ds...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func exposureTimePct(result backtest.Result) float64 {
	if len(result.EquityCurve) == 0 {
		return 0
	}
	withOpen := 0
	for _, pt := range result.EquityCurve {
		if pt.OpenPositionsCount > 0 {
			withOpen++
		}
	}
	return float64(withOpen) / float64(len(result.EquityCurve)) * 100
}

// computeRiskAdjusted mirrors the teacher's calculateSharpeRatio /
// calculateMaxDrawdown shape but works from bar-over-bar equity
// returns (not per-trade PL%) and uses gonum/stat for the mean/stddev
// arithmetic instead of a hand-rolled variance loop, plus the
// downside-only deviation needed for Sortino.
func computeRiskAdjusted(result backtest.Result, barsPerYear float64) RiskAdjusted {
	ra := RiskAdjusted{}
	curve := result.EquityCurve
	if len(curve) < 2 {
		return ra
	}

	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			continue
		}
		returns = append(returns, (curve[i].Equity-prev)/prev)
	}
	if len(returns) == 0 {
		return ra
	}

	mean := stat.Mean(returns, nil)
	sd := stat.StdDev(returns, nil)
	ra.AnnualizedVolatility = sd * math.Sqrt(barsPerYear) * 100

	if sd > 0 {
		ra.SharpeRatio = mean / sd * math.Sqrt(barsPerYear)
	}

	downside := make([]float64, 0, len(returns))
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) > 0 {
		downsideDev := stat.StdDev(downside, nil)
		if downsideDev > 0 {
			ra.SortinoRatio = mean / downsideDev * math.Sqrt(barsPerYear)
		}
	}

	maxDD, ddDuration := maxDrawdown(curve)
	ra.MaxDrawdownPct = maxDD
	ra.MaxDrawdownDuration = ddDuration
	return ra
}

func maxDrawdown(curve []backtest.EquityPoint) (pct float64, duration time.Duration) {
	if len(curve) == 0 {
		return 0, 0
	}
	peak := curve[0].Equity
	peakTime := curve[0].Timestamp
	maxDD := 0.0
	var maxDur time.Duration
	for _, pt := range curve {
		if pt.Equity > peak {
			peak = pt.Equity
			peakTime = pt.Timestamp
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - pt.Equity) / peak * 100
		if dd > maxDD {
			maxDD = dd
		}
		if d := pt.Timestamp.Sub(peakTime); d > maxDur {
			maxDur = d
		}
	}
	return maxDD, maxDur
}

func computeAdvanced(result backtest.Result, initialCapital, maxDrawdownPct, barsPerYear float64) Advanced {
	adv := Advanced{}
	curve := result.EquityCurve
	if len(curve) == 0 || initialCapital <= 0 {
		return adv
	}
	finalEquity := curve[len(curve)-1].Equity
	years := float64(len(curve)) / barsPerYear
	if years > 0 && finalEquity > 0 {
		adv.CAGRPct = (math.Pow(finalEquity/initialCapital, 1/years) - 1) * 100
	}

	var totalNotional float64
	for _, p := range result.ClosedPositions {
		totalNotional += p.InitialSize * p.EntryPrice
	}
	if initialCapital > 0 {
		adv.Turnover = totalNotional / initialCapital
	}

	netProfit := finalEquity - initialCapital
	if maxDrawdownPct > 0 {
		maxDrawdownAbs := initialCapital * maxDrawdownPct / 100
		if maxDrawdownAbs > 0 {
			adv.RecoveryFactor = netProfit / maxDrawdownAbs
		}
	}
	return adv
}

func computeCosts(result backtest.Result, netProfit float64) Costs {
	c := Costs{}
	for _, p := range result.ClosedPositions {
		c.TotalFees += p.EntryFee + p.ExitFeesPaid
		c.TotalSlippage += p.SlippageAccrued
	}
	totalCost := c.TotalFees + c.TotalSlippage
	grossProfit := netProfit + totalCost
	if grossProfit != 0 {
		c.CostDragPct = totalCost / math.Abs(grossProfit) * 100
	}
	return c
}
