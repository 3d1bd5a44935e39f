package analytics

import (
	"encoding/csv"
	"encoding/json"
	"html/template"
	"io"
	"strconv"
)

// WriteJSON renders Metrics as the authoritative JSON tearsheet.
func WriteJSON(w io.Writer, m Metrics) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// WriteCSV renders Metrics as a flat metric,value CSV, grounded on the
// pack's encoding/csv export pattern (e.g.
// slabach-perfect-nt-bot's exportCSV) rather than a hand-rolled
// delimited writer.
func WriteCSV(w io.Writer, m Metrics) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	rows := [][]string{
		{"metric", "value"},
		{"total_trades", strconv.Itoa(m.Basic.TotalTrades)},
		{"winning_trades", strconv.Itoa(m.Basic.WinningTrades)},
		{"losing_trades", strconv.Itoa(m.Basic.LosingTrades)},
		{"win_rate_pct", fmtFloat(m.Basic.WinRatePct)},
		{"gross_profit", fmtFloat(m.Basic.GrossProfit)},
		{"gross_loss", fmtFloat(m.Basic.GrossLoss)},
		{"net_profit", fmtFloat(m.Basic.NetProfit)},
		{"profit_factor", fmtFloat(m.Basic.ProfitFactor)},
		{"roi_pct", fmtFloat(m.Basic.ROIPct)},
		{"sharpe_ratio", fmtFloat(m.RiskAdjusted.SharpeRatio)},
		{"sortino_ratio", fmtFloat(m.RiskAdjusted.SortinoRatio)},
		{"calmar_ratio", fmtFloat(m.RiskAdjusted.CalmarRatio)},
		{"annualized_volatility_pct", fmtFloat(m.RiskAdjusted.AnnualizedVolatility)},
		{"max_drawdown_pct", fmtFloat(m.RiskAdjusted.MaxDrawdownPct)},
		{"max_drawdown_duration", m.RiskAdjusted.MaxDrawdownDuration.String()},
		{"avg_trade_duration", m.TradeStats.AvgTradeDuration.String()},
		{"median_trade_duration", m.TradeStats.MedianTradeDuration.String()},
		{"tp1_hit_rate_pct", fmtFloat(m.TradeStats.TP1HitRatePct)},
		{"tp2_hit_rate_pct", fmtFloat(m.TradeStats.TP2HitRatePct)},
		{"max_consecutive_wins", strconv.Itoa(m.TradeStats.MaxConsecutiveWins)},
		{"max_consecutive_losses", strconv.Itoa(m.TradeStats.MaxConsecutiveLosses)},
		{"expectancy_per_trade", fmtFloat(m.TradeStats.ExpectancyPerTrade)},
		{"exposure_time_pct", fmtFloat(m.TradeStats.ExposureTimePct)},
		{"cagr_pct", fmtFloat(m.Advanced.CAGRPct)},
		{"turnover", fmtFloat(m.Advanced.Turnover)},
		{"recovery_factor", fmtFloat(m.Advanced.RecoveryFactor)},
		{"total_fees", fmtFloat(m.Costs.TotalFees)},
		{"total_slippage", fmtFloat(m.Costs.TotalSlippage)},
		{"cost_drag_pct", fmtFloat(m.Costs.CostDragPct)},
	}
	for reason, count := range m.TradeStats.ExitReasonHistogram {
		rows = append(rows, []string{"exit_reason_" + reason, strconv.Itoa(count)})
	}
	return cw.WriteAll(rows)
}

func fmtFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}

var tearsheetHTML = template.Must(template.New("tearsheet").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Backtest tearsheet</title>
<style>
body { font-family: -apple-system, sans-serif; margin: 2rem; color: #222; }
table { border-collapse: collapse; margin-bottom: 1.5rem; }
th, td { padding: 0.3rem 0.8rem; border-bottom: 1px solid #ddd; text-align: left; }
h2 { margin-top: 2rem; }
</style>
</head>
<body>
<h1>Backtest tearsheet</h1>

<h2>Basic</h2>
<table>
<tr><th>Total trades</th><td>{{.Basic.TotalTrades}}</td></tr>
<tr><th>Win rate</th><td>{{printf "%.2f" .Basic.WinRatePct}}%</td></tr>
<tr><th>Profit factor</th><td>{{printf "%.2f" .Basic.ProfitFactor}}</td></tr>
<tr><th>Net profit</th><td>{{printf "%.2f" .Basic.NetProfit}}</td></tr>
<tr><th>ROI</th><td>{{printf "%.2f" .Basic.ROIPct}}%</td></tr>
</table>

<h2>Risk-adjusted</h2>
<table>
<tr><th>Sharpe</th><td>{{printf "%.2f" .RiskAdjusted.SharpeRatio}}</td></tr>
<tr><th>Sortino</th><td>{{printf "%.2f" .RiskAdjusted.SortinoRatio}}</td></tr>
<tr><th>Calmar</th><td>{{printf "%.2f" .RiskAdjusted.CalmarRatio}}</td></tr>
<tr><th>Annualized volatility</th><td>{{printf "%.2f" .RiskAdjusted.AnnualizedVolatility}}%</td></tr>
<tr><th>Max drawdown</th><td>{{printf "%.2f" .RiskAdjusted.MaxDrawdownPct}}%</td></tr>
<tr><th>Max drawdown duration</th><td>{{.RiskAdjusted.MaxDrawdownDuration}}</td></tr>
</table>

<h2>Trade stats</h2>
<table>
<tr><th>Avg trade duration</th><td>{{.TradeStats.AvgTradeDuration}}</td></tr>
<tr><th>Median trade duration</th><td>{{.TradeStats.MedianTradeDuration}}</td></tr>
<tr><th>TP1 hit rate</th><td>{{printf "%.2f" .TradeStats.TP1HitRatePct}}%</td></tr>
<tr><th>TP2 hit rate</th><td>{{printf "%.2f" .TradeStats.TP2HitRatePct}}%</td></tr>
<tr><th>Max consecutive wins</th><td>{{.TradeStats.MaxConsecutiveWins}}</td></tr>
<tr><th>Max consecutive losses</th><td>{{.TradeStats.MaxConsecutiveLosses}}</td></tr>
<tr><th>Expectancy per trade</th><td>{{printf "%.2f" .TradeStats.ExpectancyPerTrade}}</td></tr>
<tr><th>Exposure time</th><td>{{printf "%.2f" .TradeStats.ExposureTimePct}}%</td></tr>
</table>

<h2>Advanced</h2>
<table>
<tr><th>CAGR</th><td>{{printf "%.2f" .Advanced.CAGRPct}}%</td></tr>
<tr><th>Turnover</th><td>{{printf "%.2f" .Advanced.Turnover}}</td></tr>
<tr><th>Recovery factor</th><td>{{printf "%.2f" .Advanced.RecoveryFactor}}</td></tr>
</table>

<h2>Costs</h2>
<table>
<tr><th>Total fees</th><td>{{printf "%.2f" .Costs.TotalFees}}</td></tr>
<tr><th>Total slippage</th><td>{{printf "%.2f" .Costs.TotalSlippage}}</td></tr>
<tr><th>Cost drag</th><td>{{printf "%.2f" .Costs.CostDragPct}}%</td></tr>
</table>

</body>
</html>
`))

// WriteHTML renders Metrics as a single self-contained HTML tearsheet
// (inline CSS, no external assets).
func WriteHTML(w io.Writer, m Metrics) error {
	return tearsheetHTML.Execute(w, m)
}
