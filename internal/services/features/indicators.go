package features

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// All helpers return a slice aligned with the input; positions without enough
// trailing history are NaN. No helper reads x[j] for j > i when producing out[i].

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func window(x []float64, end, w int) ([]float64, bool) {
	if end+1 < w {
		return nil, false
	}
	win := x[end+1-w : end+1]
	for _, v := range win {
		if math.IsNaN(v) {
			return nil, false
		}
	}
	return win, true
}

// SMA is the trailing simple moving average.
func SMA(x []float64, w int) []float64 {
	out := nanSlice(len(x))
	for i := range x {
		if win, ok := window(x, i, w); ok {
			out[i] = stat.Mean(win, nil)
		}
	}
	return out
}

// RollingStd is the trailing sample standard deviation (n-1 denominator).
func RollingStd(x []float64, w int) []float64 {
	out := nanSlice(len(x))
	if w < 2 {
		return out
	}
	for i := range x {
		if win, ok := window(x, i, w); ok {
			out[i] = stat.StdDev(win, nil)
		}
	}
	return out
}

// RollingMin is the trailing minimum.
func RollingMin(x []float64, w int) []float64 {
	out := nanSlice(len(x))
	for i := range x {
		if win, ok := window(x, i, w); ok {
			m := win[0]
			for _, v := range win[1:] {
				m = math.Min(m, v)
			}
			out[i] = m
		}
	}
	return out
}

// RollingMax is the trailing maximum.
func RollingMax(x []float64, w int) []float64 {
	out := nanSlice(len(x))
	for i := range x {
		if win, ok := window(x, i, w); ok {
			m := win[0]
			for _, v := range win[1:] {
				m = math.Max(m, v)
			}
			out[i] = m
		}
	}
	return out
}

// EMA is the recursive exponential moving average with alpha = 2/(span+1),
// seeded with the first non-NaN observation.
func EMA(x []float64, span int) []float64 {
	out := nanSlice(len(x))
	alpha := 2.0 / (float64(span) + 1)
	prev := math.NaN()
	for i, v := range x {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(prev) {
			prev = v
		} else {
			prev = alpha*v + (1-alpha)*prev
		}
		out[i] = prev
	}
	return out
}

// PctChange returns x[i]/x[i-k] - 1.
func PctChange(x []float64, k int) []float64 {
	out := nanSlice(len(x))
	for i := k; i < len(x); i++ {
		out[i] = safeDiv(x[i], x[i-k]) - 1
	}
	return out
}

// RSI is the relative strength index using simple rolling means of gains and losses.
func RSI(close []float64, period int) []float64 {
	n := len(close)
	gains := nanSlice(n)
	losses := nanSlice(n)
	for i := 1; i < n; i++ {
		d := close[i] - close[i-1]
		gains[i] = math.Max(d, 0)
		losses[i] = math.Max(-d, 0)
	}
	avgGain := SMA(gains, period)
	avgLoss := SMA(losses, period)
	out := nanSlice(n)
	for i := range out {
		if math.IsNaN(avgGain[i]) || math.IsNaN(avgLoss[i]) {
			continue
		}
		if avgLoss[i] == 0 {
			if avgGain[i] == 0 {
				continue // flat window: undefined, imputed later
			}
			out[i] = 100
			continue
		}
		rs := avgGain[i] / avgLoss[i]
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// MACD returns the (fast-slow) line, its signal EMA and the histogram.
func MACD(close []float64, fast, slow, signal int) (line, sig, hist []float64) {
	ef := EMA(close, fast)
	es := EMA(close, slow)
	line = make([]float64, len(close))
	for i := range close {
		line[i] = ef[i] - es[i]
	}
	sig = EMA(line, signal)
	hist = make([]float64, len(close))
	for i := range close {
		hist[i] = line[i] - sig[i]
	}
	return line, sig, hist
}

// Stochastic returns %K over period and %D as the smoothD-period SMA of %K.
func Stochastic(high, low, close []float64, period, smoothD int) (k, d []float64) {
	ll := RollingMin(low, period)
	hh := RollingMax(high, period)
	k = nanSlice(len(close))
	for i := range close {
		k[i] = 100 * safeDiv(close[i]-ll[i], hh[i]-ll[i])
	}
	d = SMA(k, smoothD)
	return k, d
}

// ATR is the simple rolling mean of the true range.
func ATR(high, low, close []float64, period int) []float64 {
	tr := make([]float64, len(close))
	for i := range close {
		hl := high[i] - low[i]
		if i == 0 {
			tr[i] = hl
			continue
		}
		tr[i] = math.Max(hl, math.Max(math.Abs(high[i]-close[i-1]), math.Abs(low[i]-close[i-1])))
	}
	return SMA(tr, period)
}

// safeDiv returns NaN instead of ±Inf on a zero denominator.
func safeDiv(a, b float64) float64 {
	if b == 0 || math.IsNaN(a) || math.IsNaN(b) {
		return math.NaN()
	}
	v := a / b
	if math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
