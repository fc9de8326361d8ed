package model

import (
	"math"
	"time"

	"StockPredictor/internal/domain/models"
	"StockPredictor/pkg/config"
)

// separableMatrix labels a row up when its first feature is positive.
func separableMatrix(n int) *models.FeatureMatrix {
	m := &models.FeatureMatrix{Symbol: "TEST", Columns: []string{"signal", "noise", "flat"}}
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		x := math.Sin(float64(i) * 0.37)
		noise := math.Cos(float64(i) * 1.91)
		m.Values = append(m.Values, []float64{x, noise, 1})
		m.Dates = append(m.Dates, start.AddDate(0, 0, i))
		m.Close = append(m.Close, 100+x)
		m.FuturePrice = append(m.FuturePrice, 100+x)
		m.FutureReturn = append(m.FutureReturn, x/100)
		m.FutureReturnVolAdj = append(m.FutureReturnVolAdj, x)
		d := 0
		if x > 0 {
			d = 1
		}
		m.Direction = append(m.Direction, d)
	}
	return m
}

func quickParams() config.ModelParams {
	return config.ModelParams{
		MaxDepth: 3, LearningRate: 0.3, NEstimators: 40, Subsample: 0.8, ColsampleByTree: 1,
		MinChildWeight: 1, RegAlpha: 0, RegLambda: 1,
	}
}

func trainingConfig() config.TrainingConfig {
	return config.TrainingConfig{TestSize: 0.2, RandomState: 42}
}
