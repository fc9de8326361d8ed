package features

import (
	"math"
	"time"

	"StockPredictor/internal/domain/models"
)

// Warmup is the first row index at which every rolling window has full history.
// The longest window (SMA/EMA 200) needs bars [0, 199].
const Warmup = 199

var (
	maWindows       = []int{5, 10, 20, 50, 200}
	returnHorizons  = []int{1, 5, 10, 20}
	volatilityWins  = []int{10, 20, 60}
	priceToMAWindow = []int{5, 20, 50, 200}
)

// Engineer turns an ordered bar sequence into a feature matrix with labels.
type Engineer struct {
	horizon   int
	threshold float64
	calendar  *TradingCalendar
}

// Option configures an Engineer.
type Option func(*Engineer)

// WithCalendar overrides the trading calendar used for month start/end flags.
func WithCalendar(tc *TradingCalendar) Option {
	return func(e *Engineer) { e.calendar = tc }
}

// NewEngineer creates an engineer labeling direction over horizon bars with threshold tau.
func NewEngineer(horizon int, threshold float64, opts ...Option) *Engineer {
	if horizon < 1 {
		horizon = 1
	}
	e := &Engineer{horizon: horizon, threshold: threshold}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Warmup returns the number of leading bars consumed by rolling windows.
func (e *Engineer) Warmup() int { return Warmup }

// Horizon returns the label horizon K.
func (e *Engineer) Horizon() int { return e.horizon }

// MinBars is the smallest input length that yields at least two labeled rows.
func (e *Engineer) MinBars() int { return Warmup + e.horizon + 2 }

// Build computes features and labels for rows t in [Warmup, N-K).
// Fewer than two such rows yields an empty matrix.
func (e *Engineer) Build(symbol string, bars []models.Bar) *models.FeatureMatrix {
	n := len(bars)
	end := n - e.horizon
	if end-Warmup < 2 {
		return &models.FeatureMatrix{Symbol: symbol, Columns: e.Columns()}
	}
	cols, series := e.compute(symbol, bars)
	m := assemble(symbol, bars, cols, series, Warmup, end)

	vol20 := series[indexOf(cols, "volatility_20")]
	rows := end - Warmup
	m.FuturePrice = make([]float64, rows)
	m.FutureReturn = make([]float64, rows)
	m.FutureReturnVolAdj = make([]float64, rows)
	m.Direction = make([]int, rows)
	for i := 0; i < rows; i++ {
		t := Warmup + i
		fp := bars[t+e.horizon].Close
		fr := fp/bars[t].Close - 1
		m.FuturePrice[i] = fp
		m.FutureReturn[i] = fr
		m.FutureReturnVolAdj[i] = safeDiv(fr, vol20[t])
		if fr > e.threshold {
			m.Direction[i] = 1
		}
	}
	return m
}

// BuildInference computes features for rows t in [Warmup, N) without labels,
// so the most recent bars can be scored.
func (e *Engineer) BuildInference(symbol string, bars []models.Bar) *models.FeatureMatrix {
	if len(bars) <= Warmup {
		return &models.FeatureMatrix{Symbol: symbol, Columns: e.Columns()}
	}
	cols, series := e.compute(symbol, bars)
	return assemble(symbol, bars, cols, series, Warmup, len(bars))
}

// Columns returns the ordered feature names produced by Build.
func (e *Engineer) Columns() []string {
	cols, _ := e.compute("", nil)
	return cols
}

func assemble(symbol string, bars []models.Bar, cols []string, series [][]float64, from, to int) *models.FeatureMatrix {
	rows := to - from
	m := &models.FeatureMatrix{
		Symbol:  symbol,
		Columns: cols,
		Dates:   make([]time.Time, rows),
		Values:  make([][]float64, rows),
		Close:   make([]float64, rows),
	}
	for i := 0; i < rows; i++ {
		t := from + i
		row := make([]float64, len(cols))
		for j := range cols {
			v := series[j][t]
			if math.IsInf(v, 0) {
				v = math.NaN()
			}
			row[j] = v
		}
		m.Values[i] = row
		m.Dates[i] = bars[t].Date
		m.Close[i] = bars[t].Close
	}
	return m
}

func indexOf(cols []string, name string) int {
	for i, c := range cols {
		if c == name {
			return i
		}
	}
	return -1
}
