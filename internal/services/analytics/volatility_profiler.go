package analytics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"StockPredictor/internal/domain/models"
	domsvc "StockPredictor/internal/domain/service"
	"StockPredictor/internal/services/features"
)

// Annualized volatility cut-offs between regimes.
const (
	LowVolatilityCeiling    = 0.25
	MediumVolatilityCeiling = 0.40
	HighVolatilityCeiling   = 0.60
)

// ReturnColumn is the feature column holding one-day returns.
const ReturnColumn = "ret_1"

// VolatilityProfiler buckets realized volatility into a regime.
type VolatilityProfiler struct {
	barsPerYear float64
}

// NewVolatilityProfiler creates a profiler annualizing over 252 trading days.
func NewVolatilityProfiler() *VolatilityProfiler {
	return &VolatilityProfiler{barsPerYear: features.TradingDaysPerYear}
}

// Profile computes sigma over every finite return. An empty series is MEDIUM.
func (p *VolatilityProfiler) Profile(returns []float64) models.VolatilityProfile {
	clean := make([]float64, 0, len(returns))
	for _, r := range returns {
		if !math.IsNaN(r) && !math.IsInf(r, 0) {
			clean = append(clean, r)
		}
	}
	if len(clean) < 2 {
		return models.VolatilityProfile{Regime: models.RegimeMedium, Observations: len(clean)}
	}
	daily := stat.StdDev(clean, nil)
	annual := daily * math.Sqrt(p.barsPerYear)
	return models.VolatilityProfile{
		SigmaDaily:   daily,
		SigmaAnnual:  annual,
		Regime:       ClassifyVolatility(annual),
		Observations: len(clean),
	}
}

// ProfileMatrix profiles the log of one plus the ret_1 column of m.
func (p *VolatilityProfiler) ProfileMatrix(m *models.FeatureMatrix) models.VolatilityProfile {
	if m == nil {
		return p.Profile(nil)
	}
	ret, ok := m.Column(ReturnColumn)
	if !ok {
		return p.Profile(nil)
	}
	logRet := make([]float64, len(ret))
	for i, r := range ret {
		logRet[i] = math.Log1p(r)
	}
	return p.Profile(logRet)
}

// ClassifyVolatility maps annualized sigma to a regime.
func ClassifyVolatility(sigmaAnnual float64) models.VolatilityRegime {
	switch {
	case sigmaAnnual < LowVolatilityCeiling:
		return models.RegimeLow
	case sigmaAnnual < MediumVolatilityCeiling:
		return models.RegimeMedium
	case sigmaAnnual < HighVolatilityCeiling:
		return models.RegimeHigh
	default:
		return models.RegimeVeryHigh
	}
}

var _ domsvc.VolatilityProfiler = (*VolatilityProfiler)(nil)
