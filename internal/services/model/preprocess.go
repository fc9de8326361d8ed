package model

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Imputer replaces non-finite values with per-column medians learned on the training fold.
type Imputer struct {
	Medians []float64 `json:"medians"`
}

// FitImputer learns column medians over the finite entries of X.
// A column with no finite entry imputes to zero.
func FitImputer(X [][]float64) *Imputer {
	if len(X) == 0 {
		return &Imputer{}
	}
	d := len(X[0])
	med := make([]float64, d)
	col := make([]float64, 0, len(X))
	for j := 0; j < d; j++ {
		col = col[:0]
		for _, row := range X {
			if finite(row[j]) {
				col = append(col, row[j])
			}
		}
		med[j] = median(col)
	}
	return &Imputer{Medians: med}
}

// Transform returns a copy of X with non-finite values imputed.
func (im *Imputer) Transform(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		r := make([]float64, len(row))
		for j, v := range row {
			if !finite(v) && j < len(im.Medians) {
				v = im.Medians[j]
			}
			r[j] = v
		}
		out[i] = r
	}
	return out
}

// StandardScaler centers each column and scales it to unit population variance.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitScaler learns column means and standard deviations. Constant columns get scale 1.
func FitScaler(X [][]float64) *StandardScaler {
	if len(X) == 0 {
		return &StandardScaler{}
	}
	d := len(X[0])
	s := &StandardScaler{Mean: make([]float64, d), Scale: make([]float64, d)}
	col := make([]float64, len(X))
	n := float64(len(X))
	for j := 0; j < d; j++ {
		for i, row := range X {
			col[i] = row[j]
		}
		mean, variance := stat.MeanVariance(col, nil)
		if len(X) < 2 {
			variance = 0
		} else {
			variance *= (n - 1) / n
		}
		s.Mean[j] = mean
		s.Scale[j] = math.Sqrt(variance)
		if s.Scale[j] == 0 || !finite(s.Scale[j]) {
			s.Scale[j] = 1
		}
	}
	return s
}

// Transform returns a standardized copy of X.
func (s *StandardScaler) Transform(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		r := make([]float64, len(row))
		for j, v := range row {
			r[j] = (v - s.Mean[j]) / s.Scale[j]
		}
		out[i] = r
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// median of xs, averaging the two middle values for even lengths. Empty is 0.
func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}
