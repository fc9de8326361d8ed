package model

import (
	"StockPredictor/internal/domain/models"
	domsvc "StockPredictor/internal/domain/service"
)

// Predictor turns feature matrices into per-row signals with a fitted model.
type Predictor struct {
	model *Model
}

// NewPredictor wraps a fitted model.
func NewPredictor(m *Model) *Predictor {
	return &Predictor{model: m}
}

// Predict scores every row of fm. Class 1 is predicted iff P(up) > 0.5.
func (p *Predictor) Predict(fm *models.FeatureMatrix) ([]models.Signal, error) {
	if p == nil || !p.model.Fitted() {
		symbol := ""
		if fm != nil {
			symbol = fm.Symbol
		}
		return nil, models.NewPipelineError(models.ErrModelNotFitted, "predict", symbol)
	}
	if fm.Len() == 0 {
		return nil, nil
	}
	rows, err := p.model.Align(fm)
	if err != nil {
		return nil, err
	}
	probs, err := p.model.PredictProba(rows)
	if err != nil {
		return nil, models.NewPipelineError(models.ErrModelNotFitted, "predict", fm.Symbol).WithError(err)
	}
	out := make([]models.Signal, len(probs))
	for i, pu := range probs {
		out[i] = models.Signal{
			Date:       fm.Dates[i],
			Prediction: classOf(pu),
			ProbDown:   1 - pu,
			ProbUp:     pu,
		}
	}
	return out, nil
}

var _ domsvc.SignalPredictor = (*Predictor)(nil)
