package backtest

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockPredictor/internal/domain/models"
	"StockPredictor/pkg/config"
)

func scenarioConfig() Config {
	return Config{
		InitialCapital: 100000,
		CommissionRate: 0.0015,
		SlippageRate:   0.0005,
		Risk: config.RiskParams{
			MaxPositionSize:     0.02,
			StopLossPct:         0.05,
			TakeProfitPct:       0.10,
			MaxDailyTrades:      2,
			ConfidenceThreshold: 0.50,
		},
	}
}

func dailyMatrix(closes []float64) *models.FeatureMatrix {
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	m := &models.FeatureMatrix{Symbol: "TEST", Columns: []string{"x"}}
	for i, c := range closes {
		m.Dates = append(m.Dates, start.AddDate(0, 0, i))
		m.Close = append(m.Close, c)
		m.Values = append(m.Values, []float64{c})
	}
	return m
}

func signalsFor(m *models.FeatureMatrix, pUp func(i int) float64) []models.Signal {
	out := make([]models.Signal, m.Len())
	for i := range out {
		p := pUp(i)
		pred := 0
		if p > 0.5 {
			pred = 1
		}
		out[i] = models.Signal{Date: m.Dates[i], Prediction: pred, ProbUp: p, ProbDown: 1 - p}
	}
	return out
}

func constant(p float64) func(int) float64 { return func(int) float64 { return p } }

func assertConsistent(t *testing.T, res *Result) {
	t.Helper()
	for i, tr := range res.Trades {
		want := models.SideBuy
		if i%2 == 1 {
			want = models.SideSell
		}
		assert.Equal(t, want, tr.Side, "trade %d", i)
	}
	for _, p := range res.Equity {
		want := p.Cash + p.PositionQty*p.Close
		assert.InDelta(t, want, p.Equity, 1e-9*math.Max(1, math.Abs(want)))
	}
}

func TestEngine_FlatSeriesNoEntries(t *testing.T) {
	closes := make([]float64, 300)
	for i := range closes {
		closes[i] = 100
	}
	m := dailyMatrix(closes)
	res, err := NewEngine(scenarioConfig()).Run(m, signalsFor(m, constant(0.2)))
	require.NoError(t, err)

	assert.Empty(t, res.Trades)
	assert.Len(t, res.Equity, 300)
	for _, p := range res.Equity {
		assert.Equal(t, 100000.0, p.Equity)
	}
}

func TestEngine_MonotonicUpTakesProfitOnce(t *testing.T) {
	closes := make([]float64, 97)
	for i := range closes {
		closes[i] = 100 * math.Pow(1.001, float64(i))
	}
	m := dailyMatrix(closes)
	res, err := NewEngine(scenarioConfig()).Run(m, signalsFor(m, constant(1)))
	require.NoError(t, err)

	require.Len(t, res.Trades, 2)
	buy, sell := res.Trades[0], res.Trades[1]
	assert.Equal(t, m.Dates[0], buy.Date)
	assert.InDelta(t, 20.0, buy.Quantity, 1e-9)
	assert.InDelta(t, 2000.0, buy.PositionValue, 1e-9)
	assert.Equal(t, models.ReasonTakeProfit, sell.Reason)
	assert.Equal(t, m.Dates[96], sell.Date)
	assert.GreaterOrEqual(t, sell.Price, buy.Price*1.10)

	pnl := (sell.Price-buy.Price)*buy.Quantity - buy.Cost - sell.Cost
	assert.Greater(t, pnl, 0.0)
	assert.InDelta(t, 100000+pnl, res.FinalEquity(), 1e-6)
	assertConsistent(t, res)
}

func TestEngine_StopLoss(t *testing.T) {
	closes := make([]float64, 15)
	for i := 0; i <= 10; i++ {
		closes[i] = 100 * (1 + 0.004*float64(i))
	}
	closes[11] = closes[10] * 0.92
	for i := 12; i < 15; i++ {
		closes[i] = closes[11]
	}
	m := dailyMatrix(closes)
	sigs := signalsFor(m, func(i int) float64 {
		switch {
		case i < 8:
			return 0.5
		case i <= 11:
			return 0.9
		}
		return 0.1
	})
	res, err := NewEngine(scenarioConfig()).Run(m, sigs)
	require.NoError(t, err)

	require.Len(t, res.Trades, 2)
	buy, sell := res.Trades[0], res.Trades[1]
	assert.Equal(t, m.Dates[8], buy.Date)
	assert.Equal(t, models.ReasonStopLoss, sell.Reason)
	assert.Equal(t, m.Dates[11], sell.Date)
	assert.LessOrEqual(t, sell.Price, buy.Price*0.95)
	assert.Less(t, res.FinalEquity(), 100000.0)
	assertConsistent(t, res)
}

func TestEngine_DailyTradeCap(t *testing.T) {
	day := time.Date(2023, 3, 1, 14, 0, 0, 0, time.UTC)
	m := &models.FeatureMatrix{Symbol: "TEST", Columns: []string{"x"}}
	for i := 0; i < 7; i++ {
		d := day.Add(time.Duration(i) * time.Minute)
		if i == 6 {
			d = day.AddDate(0, 0, 1)
		}
		m.Dates = append(m.Dates, d)
		m.Close = append(m.Close, 100)
		m.Values = append(m.Values, []float64{0})
	}
	// exit-then-reenter opportunities: up, down, up, down, up, down; next day up
	sigs := signalsFor(m, func(i int) float64 {
		if i%2 == 0 {
			return 0.9
		}
		return 0.1
	})
	res, err := NewEngine(scenarioConfig()).Run(m, sigs)
	require.NoError(t, err)

	sameDay := 0
	for _, tr := range res.Trades {
		if models.CalendarDay(tr.Date).Equal(models.CalendarDay(day)) {
			sameDay++
		}
	}
	assert.Equal(t, 2, sameDay)
	// next day the counter resets and the entry goes through, then is force-closed
	require.Len(t, res.Trades, 4)
	assert.Equal(t, models.SideBuy, res.Trades[2].Side)
	assert.Equal(t, models.ReasonEndOfData, res.Trades[3].Reason)
	assertConsistent(t, res)
}

func TestEngine_ForceCloseAtEnd(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 100 * math.Pow(1.0005, float64(i))
	}
	m := dailyMatrix(closes)
	res, err := NewEngine(scenarioConfig()).Run(m, signalsFor(m, constant(0.8)))
	require.NoError(t, err)

	require.Len(t, res.Trades, 2)
	last := res.Trades[1]
	assert.Equal(t, m.Dates[49], last.Date)
	assert.Equal(t, closes[49], last.Price)
	assert.Equal(t, ExitConfidence, last.Confidence)
	assert.Equal(t, models.ReasonEndOfData, last.Reason)

	require.Len(t, res.Equity, 50)
	final := res.Equity[49]
	assert.Equal(t, 0.0, final.PositionQty)
	assert.Equal(t, last.CapitalAfter, final.Equity)

	// marked-to-market value before the close differs only by the exit cost
	prev := res.Equity[48]
	premark := prev.Cash + prev.PositionQty*closes[49]
	assert.InDelta(t, premark-last.Cost, final.Equity, 1e-6)
	assertConsistent(t, res)
}

func TestEngine_InsufficientCapital(t *testing.T) {
	cfg := scenarioConfig()
	cfg.InitialCapital = 1000
	// The full capital as target leaves nothing for costs.
	cfg.Risk.MaxPositionSize = 1
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	m := dailyMatrix(closes)
	res, err := NewEngine(cfg).Run(m, signalsFor(m, constant(0.95)))
	require.NoError(t, err)

	assert.Empty(t, res.Trades)
	assert.Equal(t, 1000.0, res.FinalEquity())
	assert.Equal(t, 30, res.Refused)
}

func TestEngine_FractionalQuantityAboveTargetPrice(t *testing.T) {
	closes := make([]float64, 10)
	for i := range closes {
		closes[i] = 3000
	}
	m := dailyMatrix(closes)
	res, err := NewEngine(scenarioConfig()).Run(m, signalsFor(m, constant(1)))
	require.NoError(t, err)

	require.Len(t, res.Trades, 2)
	buy := res.Trades[0]
	assert.Equal(t, 0, res.Refused)
	assert.InDelta(t, 2000.0/3000.0, buy.Quantity, 1e-12)
	assert.InDelta(t, 2000.0, buy.PositionValue, 1e-9)
	assert.InDelta(t, 2000*0.002, buy.Cost, 1e-9)
	assert.InDelta(t, 100000-2000-4, buy.CapitalAfter, 1e-9)
}

func TestEngine_ConfidenceAtThresholdNeverTrades(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + math.Sin(float64(i))
	}
	m := dailyMatrix(closes)
	res, err := NewEngine(scenarioConfig()).Run(m, signalsFor(m, constant(0.5)))
	require.NoError(t, err)

	assert.Empty(t, res.Trades)
	for _, p := range res.Equity {
		assert.Equal(t, 100000.0, p.Equity)
	}
}

func TestEngine_Deterministic(t *testing.T) {
	closes := make([]float64, 120)
	for i := range closes {
		closes[i] = 100 + 8*math.Sin(float64(i)/6)
	}
	m := dailyMatrix(closes)
	sigs := signalsFor(m, func(i int) float64 { return 0.5 + 0.45*math.Cos(float64(i)/4) })

	a, err := NewEngine(scenarioConfig()).Run(m, sigs)
	require.NoError(t, err)
	b, err := NewEngine(scenarioConfig()).Run(m, sigs)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotEmpty(t, a.Trades)
	assertConsistent(t, a)
}

func TestEngine_InvalidCloseIsSkipped(t *testing.T) {
	m := dailyMatrix([]float64{100, 101, math.NaN(), 103})
	res, err := NewEngine(scenarioConfig()).Run(m, signalsFor(m, constant(0.9)))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Len(t, res.Equity, 4)
	assert.Equal(t, 101.0, res.Equity[2].Close)
	assertConsistent(t, res)
}

func TestEngine_InputErrors(t *testing.T) {
	_, err := NewEngine(scenarioConfig()).Run(&models.FeatureMatrix{}, nil)
	assert.True(t, errors.Is(err, models.ErrDataUnavailable))

	m := dailyMatrix([]float64{100, 101})
	_, err = NewEngine(scenarioConfig()).Run(m, signalsFor(m, constant(0.9))[:1])
	assert.Error(t, err)

	sigs := signalsFor(m, constant(0.9))
	sigs[1].Date = sigs[1].Date.AddDate(0, 0, 3)
	_, err = NewEngine(scenarioConfig()).Run(m, sigs)
	assert.Error(t, err)
}
