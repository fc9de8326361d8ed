package report

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockPredictor/internal/domain/models"
	"StockPredictor/internal/services/backtest"
)

var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func point(i int, equity float64, qty float64) models.EquityPoint {
	return models.EquityPoint{Date: day0.AddDate(0, 0, i), Cash: equity, PositionQty: qty, Equity: equity}
}

func sampleResult() *backtest.Result {
	return &backtest.Result{
		Symbol:         "TEST",
		InitialCapital: 1000,
		Trades: []models.Trade{
			{Date: day0, Side: models.SideBuy, Price: 10, Quantity: 10, Cost: 1, Confidence: 0.9},
			{Date: day0.AddDate(0, 0, 2), Side: models.SideSell, Price: 12, Quantity: 10, Cost: 1, Reason: models.ReasonTakeProfit},
			{Date: day0.AddDate(0, 0, 3), Side: models.SideBuy, Price: 12, Quantity: 10, Cost: 1, Confidence: 0.7},
			{Date: day0.AddDate(0, 0, 7), Side: models.SideSell, Price: 11, Quantity: 10, Cost: 1, Reason: models.ReasonStopLoss},
		},
		Equity: []models.EquityPoint{
			point(0, 1000, 10), point(1, 1100, 10), point(2, 1018, 0), point(3, 990, 10), point(4, 1050, 0),
		},
	}
}

func TestBuild_Summary(t *testing.T) {
	rep, trips := Build(sampleResult(), models.RegimeLow)

	assert.Equal(t, "TEST", rep.Symbol)
	assert.Equal(t, models.RegimeLow, rep.Regime)
	assert.Equal(t, 4, rep.NumTrades)
	assert.Equal(t, 2, rep.RoundTrips)
	assert.Equal(t, 1050.0, rep.FinalEquity)
	assert.InDelta(t, 0.05, rep.TotalReturn, 1e-12)
	assert.InDelta(t, math.Pow(1.05, 252.0/5)-1, rep.AnnualizedReturn, 1e-9)
	assert.InDelta(t, 0.5, rep.WinRate, 1e-12)
	assert.InDelta(t, (2.0+4.0)/2, rep.AvgTradeDurationDays, 1e-12)
	assert.InDelta(t, 4.0, rep.TotalCosts, 1e-12)
	assert.InDelta(t, 0.6, rep.Exposure, 1e-12)
	assert.InDelta(t, (0.8+0.4)/2, rep.AvgConviction, 1e-12)

	require.Len(t, trips, 2)
	assert.InDelta(t, 18.0, trips[0].PnL, 1e-12)
	assert.InDelta(t, -12.0, trips[1].PnL, 1e-12)
	assert.InDelta(t, 1.5, rep.ProfitFactor, 1e-12)
	assert.InDelta(t, 18.0, rep.AvgWin, 1e-12)
	assert.InDelta(t, -12.0, rep.AvgLoss, 1e-12)
	assert.InDelta(t, 0.18, rep.BestTrade, 1e-12)
	assert.InDelta(t, -0.1, rep.WorstTrade, 1e-12)
}

func TestMaxDrawdown(t *testing.T) {
	eq := []models.EquityPoint{point(0, 100, 0), point(1, 120, 0), point(2, 90, 0), point(3, 130, 0), point(4, 117, 0)}
	assert.InDelta(t, -0.25, MaxDrawdown(eq), 1e-12)
	assert.Equal(t, 0.0, MaxDrawdown(nil))
	assert.LessOrEqual(t, MaxDrawdown(sampleResult().Equity), 0.0)
}

func TestBuild_FlatEquity(t *testing.T) {
	res := &backtest.Result{Symbol: "TEST", InitialCapital: 100000}
	for i := 0; i < 10; i++ {
		res.Equity = append(res.Equity, point(i, 100000, 0))
	}
	rep, trips := Build(res, models.RegimeMedium)
	assert.Empty(t, trips)
	assert.Equal(t, 0.0, rep.TotalReturn)
	assert.Equal(t, 0.0, rep.SharpeRatio)
	assert.Equal(t, 0.0, rep.MaxDrawdown)
	assert.Equal(t, 0.0, rep.WinRate)
	assert.Equal(t, 0.0, rep.AnnualizedVolatility)
}

func TestBuild_SharpeMatchesDailyReturns(t *testing.T) {
	res := sampleResult()
	rep, _ := Build(res, models.RegimeLow)

	r := DailyReturns(res.Equity)
	require.Len(t, r, 4)
	mean := (r[0] + r[1] + r[2] + r[3]) / 4
	ss := 0.0
	for _, v := range r {
		ss += (v - mean) * (v - mean)
	}
	sd := math.Sqrt(ss / 3)
	assert.InDelta(t, mean/sd*math.Sqrt(252), rep.SharpeRatio, 1e-9)
	assert.InDelta(t, sd*math.Sqrt(252), rep.AnnualizedVolatility, 1e-9)
}

func TestRender(t *testing.T) {
	rep, trips := Build(sampleResult(), models.RegimeLow)
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, rep, trips))

	out := buf.String()
	assert.Contains(t, out, "Backtest TEST (regime LOW, 5 bars)")
	assert.Contains(t, out, "1050.00")
	assert.Contains(t, out, "5.00%")
	assert.Contains(t, out, "take_profit")
}
