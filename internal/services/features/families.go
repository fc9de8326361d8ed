package features

import (
	"fmt"
	"math"

	"StockPredictor/internal/domain/models"
)

type columnSet struct {
	names  []string
	series [][]float64
}

func (c *columnSet) add(name string, s []float64) {
	c.names = append(c.names, name)
	c.series = append(c.series, s)
}

// compute derives every feature column over the full bar range. Each value at
// index t is a function of bars[0..t] only.
func (e *Engineer) compute(symbol string, bars []models.Bar) ([]string, [][]float64) {
	n := len(bars)
	open := make([]float64, n)
	high := make([]float64, n)
	low := make([]float64, n)
	closes := make([]float64, n)
	volume := make([]float64, n)
	for i, b := range bars {
		open[i], high[i], low[i], closes[i], volume[i] = b.Open, b.High, b.Low, b.Close, b.Volume
	}

	var cs columnSet
	addTrend(&cs, closes)
	ret1 := addMomentum(&cs, high, low, closes)
	addVolatility(&cs, open, high, low, closes, ret1)
	addVolume(&cs, closes, volume, ret1)

	tc := e.calendar
	if tc == nil && n > 0 {
		tc = CalendarFor(symbol)
	}
	addCalendar(&cs, bars, tc)
	return cs.names, cs.series
}

func addTrend(cs *columnSet, closes []float64) {
	n := len(closes)
	sma := map[int][]float64{}
	for _, w := range maWindows {
		sma[w] = SMA(closes, w)
		cs.add(fmt.Sprintf("sma_%d", w), sma[w])
	}
	for _, w := range maWindows {
		cs.add(fmt.Sprintf("ema_%d", w), EMA(closes, w))
	}
	for _, w := range priceToMAWindow {
		s := nanSlice(n)
		for i := range closes {
			s[i] = safeDiv(closes[i], sma[w][i]) - 1
		}
		cs.add(fmt.Sprintf("price_to_sma_%d", w), s)
	}
	for _, pair := range [][2]int{{5, 20}, {20, 50}, {50, 200}} {
		fast, slow := sma[pair[0]], sma[pair[1]]
		s := nanSlice(n)
		for i := range closes {
			if math.IsNaN(fast[i]) || math.IsNaN(slow[i]) {
				continue
			}
			s[i] = 0
			if fast[i] > slow[i] {
				s[i] = 1
			}
		}
		cs.add(fmt.Sprintf("sma_%d_above_%d", pair[0], pair[1]), s)
	}
	cs.add("sma_20_slope", PctChange(sma[20], 5))
}

func addMomentum(cs *columnSet, high, low, closes []float64) []float64 {
	var ret1 []float64
	for _, k := range returnHorizons {
		r := PctChange(closes, k)
		if k == 1 {
			ret1 = r
		}
		cs.add(fmt.Sprintf("ret_%d", k), r)
	}
	cs.add("rsi_14", RSI(closes, 14))
	line, sig, hist := MACD(closes, 12, 26, 9)
	cs.add("macd", line)
	cs.add("macd_signal", sig)
	cs.add("macd_hist", hist)
	k, d := Stochastic(high, low, closes, 14, 3)
	cs.add("stoch_k", k)
	cs.add("stoch_d", d)
	return ret1
}

func addVolatility(cs *columnSet, open, high, low, closes, ret1 []float64) {
	n := len(closes)
	for _, w := range volatilityWins {
		cs.add(fmt.Sprintf("volatility_%d", w), RollingStd(ret1, w))
	}
	atr := ATR(high, low, closes, 14)
	cs.add("atr_14", atr)
	atrRatio := nanSlice(n)
	for i := range closes {
		atrRatio[i] = safeDiv(atr[i], closes[i])
	}
	cs.add("atr_ratio", atrRatio)

	mid := SMA(closes, 20)
	sd := RollingStd(closes, 20)
	width := nanSlice(n)
	pos := nanSlice(n)
	for i := range closes {
		upper, lower := mid[i]+2*sd[i], mid[i]-2*sd[i]
		width[i] = safeDiv(upper-lower, mid[i])
		pos[i] = safeDiv(closes[i]-lower, upper-lower)
	}
	cs.add("bb_width", width)
	cs.add("bb_position", pos)

	rng := nanSlice(n)
	body := nanSlice(n)
	for i := range closes {
		rng[i] = safeDiv(high[i]-low[i], closes[i])
		body[i] = safeDiv(closes[i]-open[i], open[i])
	}
	cs.add("realized_range", rng)
	cs.add("realized_range_10", SMA(rng, 10))
	cs.add("candle_body", body)
}

func addVolume(cs *columnSet, closes, volume, ret1 []float64) {
	n := len(closes)
	mean := SMA(volume, 20)
	sd := RollingStd(volume, 20)
	z := nanSlice(n)
	ratio := nanSlice(n)
	for i := range volume {
		z[i] = safeDiv(volume[i]-mean[i], sd[i])
		ratio[i] = safeDiv(volume[i], mean[i])
	}
	cs.add("volume_zscore_20", z)
	cs.add("volume_ratio_20", ratio)

	obvDiff := nanSlice(n)
	pvt := nanSlice(n)
	acc := 0.0
	for i := 1; i < n; i++ {
		obvDiff[i] = sign(closes[i]-closes[i-1]) * volume[i]
		if !math.IsNaN(ret1[i]) {
			acc += ret1[i] * volume[i]
		}
		pvt[i] = acc
	}
	cs.add("obv_diff", obvDiff)
	cs.add("pvt", pvt)
}

func addCalendar(cs *columnSet, bars []models.Bar, tc *TradingCalendar) {
	n := len(bars)
	if n > 0 {
		tc.Cover(bars[0].Day(), bars[n-1].Day())
	}
	dow := make([]float64, n)
	month := make([]float64, n)
	start := make([]float64, n)
	end := make([]float64, n)
	for i, b := range bars {
		d := b.Day()
		// Monday = 0
		dow[i] = float64((int(d.Weekday()) + 6) % 7)
		month[i] = float64(d.Month())
		if tc.IsMonthStart(d) {
			start[i] = 1
		}
		if tc.IsMonthEnd(d) {
			end[i] = 1
		}
	}
	cs.add("day_of_week", dow)
	cs.add("month", month)
	cs.add("is_month_start", start)
	cs.add("is_month_end", end)
}
