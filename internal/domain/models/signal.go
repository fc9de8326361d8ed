package models

import "time"

// Signal is the per-row classifier output.
type Signal struct {
	Date       time.Time `json:"date"`
	Prediction int       `json:"prediction"` // 1 = up, 0 = not up
	ProbDown   float64   `json:"prob_down"`
	ProbUp     float64   `json:"prob_up"`
}

// Confidence is the max class probability.
func (s Signal) Confidence() float64 {
	if s.ProbUp > s.ProbDown {
		return s.ProbUp
	}
	return s.ProbDown
}

// Conviction maps the up-probability to a 0-1 distance from a coin flip.
func (s Signal) Conviction() float64 {
	return Conviction(s.ProbUp)
}

// Conviction returns |pUp - 0.5| * 2.
func Conviction(pUp float64) float64 {
	d := pUp - 0.5
	if d < 0 {
		d = -d
	}
	return d * 2
}

// PredictionSnapshot is the latest-row prediction served over HTTP.
type PredictionSnapshot struct {
	Symbol      string           `json:"symbol"`
	Date        time.Time        `json:"date"`
	Close       float64          `json:"close"`
	Prediction  int              `json:"prediction"`
	ProbUp      float64          `json:"prob_up"`
	ProbDown    float64          `json:"prob_down"`
	Confidence  float64          `json:"confidence"`
	Conviction  float64          `json:"conviction"`
	Regime      VolatilityRegime `json:"regime"`
	SigmaAnnual float64          `json:"sigma_annual"`
	Vol20       float64          `json:"realized_vol_20"`
	ModelPath   string           `json:"model_path"`
	HorizonDays int              `json:"horizon_days"`
}
