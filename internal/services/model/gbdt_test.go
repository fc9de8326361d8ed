package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBooster_LearnsThreshold(t *testing.T) {
	X := make([][]float64, 0, 100)
	y := make([]int, 0, 100)
	for i := 0; i < 100; i++ {
		v := float64(i)
		X = append(X, []float64{v, float64(i % 3)})
		if i >= 50 {
			y = append(y, 1)
		} else {
			y = append(y, 0)
		}
	}
	b := NewBooster(BoosterParams{MaxDepth: 2, LearningRate: 0.5, NEstimators: 20, MinChildWeight: 1, RegLambda: 1, Seed: 42})
	require.NoError(t, b.Fit(X, y))
	require.Len(t, b.Trees, 20)

	probs, err := b.PredictProba([][]float64{{10, 0}, {90, 0}})
	require.NoError(t, err)
	assert.Less(t, probs[0], 0.2)
	assert.Greater(t, probs[1], 0.8)

	imp := b.Importance()
	assert.Greater(t, imp[0], imp[1])
	assert.InDelta(t, 1.0, imp[0]+imp[1], 1e-9)

	// first split lands between the two classes
	root := b.Trees[0].Nodes[0]
	assert.False(t, root.Leaf)
	assert.Equal(t, 0, root.Feature)
	assert.Equal(t, 49.5, root.Threshold)
}

func TestBooster_Deterministic(t *testing.T) {
	m := separableMatrix(120)
	p := BoosterParams{MaxDepth: 3, LearningRate: 0.2, NEstimators: 15, Subsample: 0.7, ColsampleByTree: 0.7, MinChildWeight: 1, RegLambda: 1, Seed: 42}

	a, b := NewBooster(p), NewBooster(p)
	require.NoError(t, a.Fit(m.Values, m.Direction))
	require.NoError(t, b.Fit(m.Values, m.Direction))
	pa, _ := a.PredictProba(m.Values)
	pb, _ := b.PredictProba(m.Values)
	assert.Equal(t, pa, pb)
}

func TestBooster_Errors(t *testing.T) {
	b := NewBooster(BoosterParams{NEstimators: 1})
	assert.Error(t, b.Fit(nil, nil))
	_, err := b.PredictProba([][]float64{{1}})
	assert.Error(t, err)

	require.NoError(t, b.Fit([][]float64{{1}, {2}}, []int{0, 1}))
	_, err = b.PredictProba([][]float64{{1, 2}})
	assert.Error(t, err)
}

func TestSoftThreshold(t *testing.T) {
	assert.Equal(t, 0.5, softThreshold(1, 0.5))
	assert.Equal(t, -0.5, softThreshold(-1, 0.5))
	assert.Equal(t, 0.0, softThreshold(0.2, 0.5))
}
