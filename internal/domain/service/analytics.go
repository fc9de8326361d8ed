package service

import (
	"StockPredictor/internal/domain/models"
)

// VolatilityProfiler classifies a return series into a volatility regime.
type VolatilityProfiler interface {
	Profile(returns []float64) models.VolatilityProfile
}

// Classifier produces per-row class probabilities for a scaled feature matrix.
type Classifier interface {
	PredictProba(rows [][]float64) ([]float64, error)
}

// SignalPredictor turns a feature matrix into per-row signals.
type SignalPredictor interface {
	Predict(m *models.FeatureMatrix) ([]models.Signal, error)
}
