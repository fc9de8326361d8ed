package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"StockPredictor/internal/domain/models"
)

func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func pct(v float64) string {
	return decimal.NewFromFloat(v*100).StringFixed(2) + "%"
}

func ratio(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(3)
}

// Render writes a human-readable summary of rep and the round trips.
func Render(w io.Writer, rep *models.PerformanceReport, trips []models.RoundTrip) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Backtest %s (regime %s, %d bars)\n", rep.Symbol, rep.Regime, rep.Bars)
	b.WriteString(strings.Repeat("-", 48) + "\n")
	rows := [][2]string{
		{"Initial capital", money(rep.InitialCapital)},
		{"Final equity", money(rep.FinalEquity)},
		{"Total return", pct(rep.TotalReturn)},
		{"Annualized return", pct(rep.AnnualizedReturn)},
		{"Annualized volatility", pct(rep.AnnualizedVolatility)},
		{"Sharpe ratio", ratio(rep.SharpeRatio)},
		{"Max drawdown", pct(rep.MaxDrawdown)},
		{"Trades", fmt.Sprintf("%d", rep.NumTrades)},
		{"Round trips", fmt.Sprintf("%d", rep.RoundTrips)},
		{"Win rate", pct(rep.WinRate)},
		{"Profit factor", ratio(rep.ProfitFactor)},
		{"Avg win", money(rep.AvgWin)},
		{"Avg loss", money(rep.AvgLoss)},
		{"Best trade", pct(rep.BestTrade)},
		{"Worst trade", pct(rep.WorstTrade)},
		{"Avg duration (days)", ratio(rep.AvgTradeDurationDays)},
		{"Exposure", pct(rep.Exposure)},
		{"Avg conviction", ratio(rep.AvgConviction)},
		{"Total costs", money(rep.TotalCosts)},
	}
	for _, r := range rows {
		fmt.Fprintf(&b, "%-24s %16s\n", r[0], r[1])
	}
	if len(trips) > 0 {
		b.WriteString("\nRound trips\n")
		for _, rt := range trips {
			fmt.Fprintf(&b, "%s -> %s  %10s -> %10s  qty %s  pnl %12s  %s\n",
				rt.EntryDate.Format("2006-01-02"), rt.ExitDate.Format("2006-01-02"),
				money(rt.EntryPrice), money(rt.ExitPrice),
				decimal.NewFromFloat(rt.Quantity).String(), money(rt.PnL), rt.ExitReason)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
