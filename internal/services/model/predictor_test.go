package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockPredictor/internal/domain/models"
)

func TestPredictor_Predict(t *testing.T) {
	m := separableMatrix(200)
	res, err := NewTrainer(trainingConfig()).Train(m, quickParams(), models.VolatilityProfile{})
	require.NoError(t, err)

	sigs, err := NewPredictor(res.Model).Predict(m)
	require.NoError(t, err)
	require.Len(t, sigs, m.Len())
	for i, s := range sigs {
		assert.InDelta(t, 1.0, s.ProbUp+s.ProbDown, 1e-12)
		assert.Equal(t, m.Dates[i], s.Date)
		if s.ProbUp > 0.5 {
			assert.Equal(t, 1, s.Prediction)
		} else {
			assert.Equal(t, 0, s.Prediction)
		}
		assert.GreaterOrEqual(t, s.Confidence(), 0.5)
	}
}

func TestPredictor_AlignsColumnsByName(t *testing.T) {
	m := separableMatrix(200)
	res, err := NewTrainer(trainingConfig()).Train(m, quickParams(), models.VolatilityProfile{})
	require.NoError(t, err)
	want, err := NewPredictor(res.Model).Predict(m)
	require.NoError(t, err)

	swapped := &models.FeatureMatrix{Symbol: m.Symbol, Columns: []string{"flat", "extra", "noise", "signal"}, Dates: m.Dates, Close: m.Close}
	for _, row := range m.Values {
		swapped.Values = append(swapped.Values, []float64{row[2], 42, row[1], row[0]})
	}
	got, err := NewPredictor(res.Model).Predict(swapped)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	missing := &models.FeatureMatrix{Symbol: m.Symbol, Columns: []string{"signal"}, Values: [][]float64{{1}}, Dates: m.Dates[:1]}
	_, err = NewPredictor(res.Model).Predict(missing)
	assert.True(t, errors.Is(err, models.ErrInsufficientFeatures))
}

func TestPredictor_NotFitted(t *testing.T) {
	_, err := NewPredictor(nil).Predict(separableMatrix(5))
	assert.True(t, errors.Is(err, models.ErrModelNotFitted))

	_, err = NewPredictor(&Model{Booster: NewBooster(BoosterParams{})}).Predict(separableMatrix(5))
	assert.True(t, errors.Is(err, models.ErrModelNotFitted))
}
