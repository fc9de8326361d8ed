package model

import (
	"fmt"

	"StockPredictor/internal/domain/models"
	domsvc "StockPredictor/internal/domain/service"
)

// Model is a fitted classifier with the preprocessing it was trained behind.
// It is immutable once returned by the trainer or loaded from disk.
type Model struct {
	Columns []string        `json:"columns"`
	Imputer *Imputer        `json:"imputer"`
	Scaler  *StandardScaler `json:"scaler"`
	Booster *Booster        `json:"booster"`
}

// Fitted reports whether the model can score rows.
func (m *Model) Fitted() bool {
	return m != nil && m.Imputer != nil && m.Scaler != nil && m.Booster.Fitted() &&
		len(m.Columns) == m.Booster.NumFeatures &&
		len(m.Imputer.Medians) == len(m.Columns) &&
		len(m.Scaler.Mean) == len(m.Columns) && len(m.Scaler.Scale) == len(m.Columns)
}

// PredictProba imputes, scales and scores raw feature rows ordered like Columns.
func (m *Model) PredictProba(rows [][]float64) ([]float64, error) {
	if !m.Fitted() {
		return nil, models.NewPipelineError(models.ErrModelNotFitted, "predict", "")
	}
	for i, r := range rows {
		if len(r) != len(m.Columns) {
			return nil, fmt.Errorf("row %d has %d features, model expects %d", i, len(r), len(m.Columns))
		}
	}
	return m.Booster.PredictProba(m.Scaler.Transform(m.Imputer.Transform(rows)))
}

// Align reorders the columns of fm into the model's column order.
func (m *Model) Align(fm *models.FeatureMatrix) ([][]float64, error) {
	idx := make([]int, len(m.Columns))
	for j, name := range m.Columns {
		k := fm.ColumnIndex(name)
		if k < 0 {
			return nil, models.NewPipelineError(models.ErrInsufficientFeatures, "predict", fm.Symbol).
				WithMessage("feature column %q missing", name)
		}
		idx[j] = k
	}
	out := make([][]float64, fm.Len())
	for i, row := range fm.Values {
		r := make([]float64, len(idx))
		for j, k := range idx {
			r[j] = row[k]
		}
		out[i] = r
	}
	return out, nil
}

var _ domsvc.Classifier = (*Model)(nil)
