package report

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"StockPredictor/internal/domain/models"
	"StockPredictor/internal/services/backtest"
)

// TradingDays annualizes daily equity statistics.
const TradingDays = 252.0

// Build derives the performance report and the paired round trips from a replay.
func Build(res *backtest.Result, regime models.VolatilityRegime) (*models.PerformanceReport, []models.RoundTrip) {
	rep := &models.PerformanceReport{
		Symbol:         res.Symbol,
		Regime:         regime,
		Bars:           len(res.Equity),
		InitialCapital: res.InitialCapital,
		FinalEquity:    res.FinalEquity(),
		NumTrades:      len(res.Trades),
	}
	if res.InitialCapital > 0 {
		rep.TotalReturn = rep.FinalEquity/res.InitialCapital - 1
	}
	if n := len(res.Equity); n > 0 && rep.TotalReturn > -1 {
		rep.AnnualizedReturn = math.Pow(1+rep.TotalReturn, TradingDays/float64(n)) - 1
	}

	daily := DailyReturns(res.Equity)
	if len(daily) >= 2 {
		mean, sd := stat.MeanStdDev(daily, nil)
		rep.AnnualizedVolatility = sd * math.Sqrt(TradingDays)
		if sd > 0 {
			rep.SharpeRatio = mean / sd * math.Sqrt(TradingDays)
		}
	}
	rep.MaxDrawdown = MaxDrawdown(res.Equity)

	inPosition := 0
	for _, p := range res.Equity {
		if p.PositionQty > 0 {
			inPosition++
		}
	}
	if len(res.Equity) > 0 {
		rep.Exposure = float64(inPosition) / float64(len(res.Equity))
	}

	entries := 0
	for _, tr := range res.Trades {
		rep.TotalCosts += tr.Cost
		if tr.Side == models.SideBuy {
			rep.AvgConviction += models.Conviction(tr.Confidence)
			entries++
		}
	}
	if entries > 0 {
		rep.AvgConviction /= float64(entries)
	}

	trips := RoundTrips(res.Trades)
	summarizeTrips(rep, trips)
	return rep, trips
}

// DailyReturns returns E_t/E_{t-1} - 1 over the equity curve.
func DailyReturns(eq []models.EquityPoint) []float64 {
	if len(eq) < 2 {
		return nil
	}
	out := make([]float64, 0, len(eq)-1)
	for i := 1; i < len(eq); i++ {
		prev := eq[i-1].Equity
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, eq[i].Equity/prev-1)
	}
	return out
}

// MaxDrawdown is the most negative relative distance from the running peak. It is never positive.
func MaxDrawdown(eq []models.EquityPoint) float64 {
	peak := math.Inf(-1)
	mdd := 0.0
	for _, p := range eq {
		peak = math.Max(peak, p.Equity)
		if peak <= 0 {
			continue
		}
		mdd = math.Min(mdd, (p.Equity-peak)/peak)
	}
	return mdd
}

// RoundTrips pairs each buy with the next sell.
func RoundTrips(trades []models.Trade) []models.RoundTrip {
	var out []models.RoundTrip
	var open *models.Trade
	for i := range trades {
		tr := &trades[i]
		switch tr.Side {
		case models.SideBuy:
			open = tr
		case models.SideSell:
			if open == nil {
				continue
			}
			pnl := (tr.Price-open.Price)*open.Quantity - open.Cost - tr.Cost
			rt := models.RoundTrip{
				EntryDate:    open.Date,
				ExitDate:     tr.Date,
				EntryPrice:   open.Price,
				ExitPrice:    tr.Price,
				Quantity:     open.Quantity,
				PnL:          pnl,
				DurationDays: tr.Date.Sub(open.Date).Hours() / 24,
				ExitReason:   tr.Reason,
			}
			if basis := open.Price * open.Quantity; basis > 0 {
				rt.ReturnPct = pnl / basis
			}
			out = append(out, rt)
			open = nil
		}
	}
	return out
}

// summarizeTrips fills trip-level statistics. A sell wins when its price beats
// the paired buy price; profit factor is zero when there are no losing trips.
func summarizeTrips(rep *models.PerformanceReport, trips []models.RoundTrip) {
	rep.RoundTrips = len(trips)
	if len(trips) == 0 {
		return
	}
	wins, winCount, lossCount := 0, 0, 0
	grossWin, grossLoss, duration := 0.0, 0.0, 0.0
	rep.BestTrade = math.Inf(-1)
	rep.WorstTrade = math.Inf(1)
	for _, rt := range trips {
		if rt.ExitPrice > rt.EntryPrice {
			wins++
		}
		if rt.PnL > 0 {
			grossWin += rt.PnL
			winCount++
		} else if rt.PnL < 0 {
			grossLoss += -rt.PnL
			lossCount++
		}
		duration += rt.DurationDays
		rep.BestTrade = math.Max(rep.BestTrade, rt.ReturnPct)
		rep.WorstTrade = math.Min(rep.WorstTrade, rt.ReturnPct)
	}
	n := float64(len(trips))
	rep.WinRate = float64(wins) / n
	rep.AvgTradeDurationDays = duration / n
	if winCount > 0 {
		rep.AvgWin = grossWin / float64(winCount)
	}
	if lossCount > 0 {
		rep.AvgLoss = -grossLoss / float64(lossCount)
	}
	if grossLoss > 0 {
		rep.ProfitFactor = grossWin / grossLoss
	}
}
