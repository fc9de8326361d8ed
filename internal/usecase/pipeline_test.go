package usecase

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockPredictor/internal/domain/models"
	domrepo "StockPredictor/internal/domain/repository"
	"StockPredictor/pkg/config"
)

type fakeSource struct {
	bars  []models.Bar
	err   error
	calls int
}

func (s *fakeSource) Fetch(_ context.Context, symbol string, _ domrepo.Period) ([]models.Bar, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.Bar, len(s.bars))
	for i, b := range s.bars {
		b.Symbol = symbol
		out[i] = b
	}
	return out, nil
}

func (s *fakeSource) Name() string { return "fake" }

type memRunStore struct {
	saved []models.RunRecord
	err   error
}

func (m *memRunStore) Init(context.Context) error { return nil }
func (m *memRunStore) Save(_ context.Context, rec *models.RunRecord) error {
	if m.err != nil {
		return m.err
	}
	rec.ID = "run-1"
	m.saved = append(m.saved, *rec)
	return nil
}
func (m *memRunStore) Recent(_ context.Context, symbol string, limit int) ([]models.RunRecord, error) {
	out := []models.RunRecord{}
	for i := len(m.saved) - 1; i >= 0 && len(out) < limit; i-- {
		if symbol == "" || m.saved[i].Symbol == symbol {
			out = append(out, m.saved[i])
		}
	}
	return out, nil
}
func (m *memRunStore) Close() error { return nil }

type capturePublisher struct{ published []string }

func (c *capturePublisher) PublishReport(_ context.Context, rec *models.RunRecord) error {
	c.published = append(c.published, rec.Symbol)
	return nil
}
func (c *capturePublisher) Close() error { return nil }

type countingMetrics struct {
	mu      sync.Mutex
	fetched int
	trades  int
	errors  []string
	stages  map[string]int
}

func (m *countingMetrics) RecordBarsFetched(_ string, n int) {
	m.mu.Lock()
	m.fetched += n
	m.mu.Unlock()
}
func (m *countingMetrics) RecordTrade(string)        { m.mu.Lock(); m.trades++; m.mu.Unlock() }
func (m *countingMetrics) RecordEntryRefused(string) {}
func (m *countingMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors = append(m.errors, kind)
	m.mu.Unlock()
}
func (m *countingMetrics) RecordLatency(op string, _ float64) {
	m.mu.Lock()
	if m.stages == nil {
		m.stages = map[string]int{}
	}
	m.stages[op]++
	m.mu.Unlock()
}

// randomWalk returns n weekday bars of a seeded random walk.
func randomWalk(n int) []models.Bar {
	rng := rand.New(rand.NewSource(7))
	bars := make([]models.Bar, 0, n)
	d := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	price := 100.0
	for len(bars) < n {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			price *= 1 + rng.NormFloat64()*0.015
			bars = append(bars, models.Bar{
				Date:   d,
				Open:   price * (1 + rng.NormFloat64()*0.002),
				High:   price * 1.01,
				Low:    price * 0.99,
				Close:  price,
				Volume: 1e6 + rng.Float64()*1e5,
			})
		}
		d = d.AddDate(0, 0, 1)
	}
	return bars
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.ModelDir = t.TempDir()
	for k, p := range cfg.Model.VolatilityConfigs {
		p.NEstimators = 15
		cfg.Model.VolatilityConfigs[k] = p
	}
	return cfg
}

func TestPipeline_TrainSavesArtifact(t *testing.T) {
	cfg := testConfig(t)
	m := &countingMetrics{}
	p := NewPipeline(cfg, &fakeSource{bars: randomWalk(500)}, WithMetrics(m))

	out, err := p.Train(context.Background(), "aapl", domrepo.Period2y)
	require.NoError(t, err)

	assert.Equal(t, cfg.ModelDir, filepath.Dir(out.Path))
	assert.Equal(t, "AAPL", out.Artifact.Symbol)
	assert.Equal(t, "2y", out.Artifact.Period)
	assert.True(t, out.Artifact.Model.Fitted())
	assert.Equal(t, cfg.RiskParamsFor(out.Artifact.Regime()), out.Artifact.Risk)
	assert.Equal(t, 296, out.Result.TrainRows+out.Result.TestRows)
	assert.Equal(t, 500, m.fetched)
	assert.Equal(t, 1, m.stages["train"])
	assert.Empty(t, m.errors)
}

func TestPipeline_TrainTooFewBars(t *testing.T) {
	cfg := testConfig(t)
	m := &countingMetrics{}
	p := NewPipeline(cfg, &fakeSource{bars: randomWalk(150)}, WithMetrics(m))

	_, err := p.Train(context.Background(), "AAPL", domrepo.Period1y)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrDataUnavailable))
	assert.Contains(t, err.Error(), "AAPL")
	assert.Equal(t, []string{"data_unavailable"}, m.errors)
}

func TestPipeline_TrainPropagatesSourceError(t *testing.T) {
	src := &fakeSource{err: models.NewPipelineError(models.ErrUnknownSymbol, "fetch", "NOPE")}
	m := &countingMetrics{}
	p := NewPipeline(testConfig(t), src, WithMetrics(m))

	_, err := p.Train(context.Background(), "NOPE", domrepo.Period2y)
	assert.True(t, errors.Is(err, models.ErrUnknownSymbol))
	assert.Equal(t, []string{"unknown_symbol"}, m.errors)
}

func TestPipeline_TrainMissingRegimeConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Model.VolatilityConfigs = map[string]config.ModelParams{}
	p := NewPipeline(cfg, &fakeSource{bars: randomWalk(500)})

	_, err := p.Train(context.Background(), "AAPL", domrepo.Period2y)
	assert.True(t, errors.Is(err, models.ErrConfigMissing))
}

func TestPipeline_BacktestRecordsAndPublishes(t *testing.T) {
	cfg := testConfig(t)
	src := &fakeSource{bars: randomWalk(500)}
	store := &memRunStore{}
	pub := &capturePublisher{}
	var rendered bytes.Buffer
	p := NewPipeline(cfg, src,
		WithRunStore(store),
		WithReportPublisher(pub),
		WithReportWriter(&rendered),
	)

	trained, err := p.Train(context.Background(), "MSFT", domrepo.Period2y)
	require.NoError(t, err)

	out, err := p.Backtest(context.Background(), BacktestRequest{ModelPath: trained.Path})
	require.NoError(t, err)

	assert.Equal(t, 296, out.Report.Bars)
	assert.Equal(t, "MSFT", out.Report.Symbol)
	assert.Equal(t, trained.Artifact.Regime(), out.Regime)
	assert.Equal(t, trained.Artifact.Risk, out.Result.Risk)
	assert.Equal(t, cfg.Backtest.InitialCapital, out.Report.InitialCapital)
	assert.NotEmpty(t, rendered.String())

	require.Len(t, store.saved, 1)
	assert.Equal(t, trained.Path, store.saved[0].ModelPath)
	assert.Equal(t, string(out.Regime), store.saved[0].Regime)
	assert.Equal(t, []string{"MSFT"}, pub.published)

	runs, err := p.RecentRuns(context.Background(), "msft", 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestPipeline_BacktestTestOnlyReplaysTestFold(t *testing.T) {
	cfg := testConfig(t)
	p := NewPipeline(cfg, &fakeSource{bars: randomWalk(500)})

	trained, err := p.Train(context.Background(), "MSFT", domrepo.Period2y)
	require.NoError(t, err)

	out, err := p.Backtest(context.Background(), BacktestRequest{ModelPath: trained.Path, TestOnly: true})
	require.NoError(t, err)
	assert.Equal(t, trained.Result.TestRows, out.Report.Bars)
	assert.Equal(t, trained.Result.TestStart, out.Result.Equity[0].Date)
}

func TestPipeline_BacktestRegimeAuto(t *testing.T) {
	cfg := testConfig(t)
	p := NewPipeline(cfg, &fakeSource{bars: randomWalk(500)})
	trained, err := p.Train(context.Background(), "MSFT", domrepo.Period2y)
	require.NoError(t, err)

	out, err := p.Backtest(context.Background(), BacktestRequest{ModelPath: trained.Path, TestOnly: true, RegimeAuto: true})
	require.NoError(t, err)
	assert.Equal(t, cfg.RiskParamsFor(out.Regime), out.Result.Risk)
}

func TestPipeline_BacktestForcedRegime(t *testing.T) {
	cfg := testConfig(t)
	p := NewPipeline(cfg, &fakeSource{bars: randomWalk(500)})
	trained, err := p.Train(context.Background(), "MSFT", domrepo.Period2y)
	require.NoError(t, err)

	out, err := p.Backtest(context.Background(), BacktestRequest{ModelPath: trained.Path, Regime: models.RegimeVeryHigh})
	require.NoError(t, err)
	assert.Equal(t, models.RegimeVeryHigh, out.Regime)
	assert.Equal(t, models.RegimeVeryHigh, out.Report.Regime)
	assert.Equal(t, 1, out.Result.Risk.MaxDailyTrades)
	assert.Equal(t, 0.60, out.Result.Risk.ConfidenceThreshold)
}

func TestPipeline_BacktestStoreFailureKeepsRun(t *testing.T) {
	cfg := testConfig(t)
	m := &countingMetrics{}
	store := &memRunStore{err: errors.New("disk full")}
	p := NewPipeline(cfg, &fakeSource{bars: randomWalk(500)}, WithRunStore(store), WithMetrics(m))
	trained, err := p.Train(context.Background(), "MSFT", domrepo.Period2y)
	require.NoError(t, err)

	out, err := p.Backtest(context.Background(), BacktestRequest{ModelPath: trained.Path})
	require.NoError(t, err)
	assert.NotNil(t, out.Report)
	assert.Equal(t, []string{"other"}, m.errors)
}

func TestPipeline_BacktestMissingModel(t *testing.T) {
	cfg := testConfig(t)
	src := &fakeSource{bars: randomWalk(500)}
	p := NewPipeline(cfg, src)

	_, err := p.Backtest(context.Background(), BacktestRequest{ModelPath: filepath.Join(cfg.ModelDir, "missing.model")})
	assert.True(t, errors.Is(err, models.ErrModelNotFitted))
	assert.Zero(t, src.calls)
}

func TestPipeline_PredictLatest(t *testing.T) {
	cfg := testConfig(t)
	bars := randomWalk(500)
	p := NewPipeline(cfg, &fakeSource{bars: bars})
	trained, err := p.Train(context.Background(), "AAPL", domrepo.Period2y)
	require.NoError(t, err)

	snap, err := p.PredictLatest(context.Background(), "aapl", domrepo.Period1y)
	require.NoError(t, err)

	assert.Equal(t, "AAPL", snap.Symbol)
	assert.Equal(t, bars[len(bars)-1].Date, snap.Date)
	assert.Equal(t, bars[len(bars)-1].Close, snap.Close)
	assert.Equal(t, trained.Path, snap.ModelPath)
	assert.Equal(t, cfg.Labeling.HorizonK, snap.HorizonDays)
	assert.InDelta(t, 1.0, snap.ProbUp+snap.ProbDown, 1e-9)
	assert.GreaterOrEqual(t, snap.Confidence, 0.5)
	assert.NotEmpty(t, snap.Regime)
	assert.Greater(t, snap.Vol20, 0.0)
}

func TestPipeline_PredictLatestWithoutModel(t *testing.T) {
	p := NewPipeline(testConfig(t), &fakeSource{bars: randomWalk(500)})

	_, err := p.PredictLatest(context.Background(), "AAPL", domrepo.Period1y)
	assert.True(t, errors.Is(err, models.ErrModelNotFitted))
}

func TestPipeline_RecentRunsWithoutStore(t *testing.T) {
	p := NewPipeline(testConfig(t), &fakeSource{})
	runs, err := p.RecentRuns(context.Background(), "", 5)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestKindName(t *testing.T) {
	assert.Equal(t, "label_degenerate", KindName(models.NewPipelineError(models.ErrLabelDegenerate, "train", "X")))
	assert.Equal(t, "other", KindName(errors.New("boom")))
}
