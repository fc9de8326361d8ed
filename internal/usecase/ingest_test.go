package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockPredictor/internal/domain/models"
	domrepo "StockPredictor/internal/domain/repository"
)

type symbolSource struct {
	bars map[string][]models.Bar
}

func (s *symbolSource) Fetch(_ context.Context, symbol string, _ domrepo.Period) ([]models.Bar, error) {
	bars, ok := s.bars[symbol]
	if !ok {
		return nil, models.NewPipelineError(models.ErrUnknownSymbol, "fetch", symbol)
	}
	return bars, nil
}

func (s *symbolSource) Name() string { return "stub" }

type memSink struct{ stored map[string]int }

func (m *memSink) StoreBars(_ context.Context, symbol string, bars []models.Bar) (int, error) {
	if m.stored == nil {
		m.stored = map[string]int{}
	}
	m.stored[symbol] += len(bars)
	return len(bars), nil
}

func TestIngestor_CopiesEverySymbol(t *testing.T) {
	src := &symbolSource{bars: map[string][]models.Bar{
		"AAPL": randomWalk(10),
		"MSFT": randomWalk(7),
	}}
	sink := &memSink{}
	m := &countingMetrics{}

	res, err := NewIngestor(src, sink, m, nil).Ingest(context.Background(), []string{"aapl", " msft ", ""}, domrepo.Period1y)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"AAPL": 10, "MSFT": 7}, res.Written)
	assert.Equal(t, res.Written, sink.stored)
	assert.Empty(t, res.Failed)
	assert.Equal(t, 2, m.stages["ingest"])
}

func TestIngestor_PartialFailureContinues(t *testing.T) {
	src := &symbolSource{bars: map[string][]models.Bar{"AAPL": randomWalk(5)}}
	m := &countingMetrics{}

	res, err := NewIngestor(src, &memSink{}, m, nil).Ingest(context.Background(), []string{"NOPE", "AAPL"}, domrepo.Period1y)
	require.NoError(t, err)

	assert.Equal(t, 5, res.Written["AAPL"])
	assert.True(t, errors.Is(res.Failed["NOPE"], models.ErrUnknownSymbol))
	assert.Equal(t, []string{"unknown_symbol"}, m.errors)
}

func TestIngestor_AllFailed(t *testing.T) {
	src := &symbolSource{bars: map[string][]models.Bar{}}

	res, err := NewIngestor(src, &memSink{}, nil, nil).Ingest(context.Background(), []string{"X", "Y"}, domrepo.Period1y)
	require.Error(t, err)
	assert.Len(t, res.Failed, 2)
}

func TestIngestor_StopsOnCancelledContext(t *testing.T) {
	src := &symbolSource{bars: map[string][]models.Bar{"AAPL": randomWalk(5)}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewIngestor(src, &memSink{}, nil, nil).Ingest(ctx, []string{"AAPL"}, domrepo.Period1y)
	assert.ErrorIs(t, err, context.Canceled)
}
