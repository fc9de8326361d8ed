package usecase

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"StockPredictor/internal/domain/models"
	domrepo "StockPredictor/internal/domain/repository"
	"StockPredictor/internal/services/analytics"
	"StockPredictor/internal/services/backtest"
	"StockPredictor/internal/services/features"
	"StockPredictor/internal/services/model"
	"StockPredictor/internal/services/report"
	"StockPredictor/pkg/config"
	"StockPredictor/pkg/logger"
)

// Pipeline runs the train, backtest and predict flows over a bar source.
type Pipeline struct {
	cfg       *config.Config
	source    domrepo.BarSource
	profiler  *analytics.VolatilityProfiler
	runs      domrepo.RunStore
	publisher domrepo.ReportPublisher
	metrics   domrepo.Metrics
	log       *logger.Logger
	out       io.Writer
	now       func() time.Time

	mu     sync.Mutex
	loaded map[string]*model.Artifact
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithRunStore records every finished backtest.
func WithRunStore(s domrepo.RunStore) PipelineOption {
	return func(p *Pipeline) { p.runs = s }
}

// WithReportPublisher publishes every finished backtest.
func WithReportPublisher(pub domrepo.ReportPublisher) PipelineOption {
	return func(p *Pipeline) { p.publisher = pub }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m domrepo.Metrics) PipelineOption {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) PipelineOption {
	return func(p *Pipeline) { p.log = l }
}

// WithReportWriter renders backtest reports to w.
func WithReportWriter(w io.Writer) PipelineOption {
	return func(p *Pipeline) { p.out = w }
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline creates a pipeline reading bars from source.
func NewPipeline(cfg *config.Config, source domrepo.BarSource, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		source:   source,
		profiler: analytics.NewVolatilityProfiler(),
		log:      logger.Nop(),
		now:      time.Now,
		loaded:   map[string]*model.Artifact{},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// TrainOutcome is the result of a training run.
type TrainOutcome struct {
	Path     string
	Artifact *model.Artifact
	Result   *model.TrainResult
}

// Train fetches bars, fits a model under the regime of the sample and saves
// the artifact to the model directory.
func (p *Pipeline) Train(ctx context.Context, symbol string, period domrepo.Period) (out *TrainOutcome, err error) {
	started := time.Now()
	symbol = strings.ToUpper(symbol)
	defer func() { p.finish("train", started, err) }()

	eng := p.engineer(symbol, p.cfg.Labeling)
	bars, err := p.fetch(ctx, symbol, period, eng.MinBars())
	if err != nil {
		return nil, err
	}
	fm := eng.Build(symbol, bars)
	if !fm.Labeled() {
		return nil, models.NewPipelineError(models.ErrInsufficientFeatures, "features", symbol).
			WithMessage("no labeled rows from %d bars", len(bars))
	}

	profile := p.profiler.ProfileMatrix(fm)
	params, err := p.cfg.ModelParamsFor(profile.Regime)
	if err != nil {
		return nil, err
	}
	p.log.Info("volatility profiled",
		logger.String("symbol", symbol),
		logger.String("regime", string(profile.Regime)),
		logger.Float64("sigma_annual", profile.SigmaAnnual),
	)

	res, err := model.NewTrainer(p.cfg.Training, model.WithTrainerLogger(p.log)).Train(fm, params, profile)
	if err != nil {
		return nil, err
	}
	a := &model.Artifact{
		CreatedAt: p.now().UTC(),
		Symbol:    symbol,
		Period:    string(period),
		Model:     res.Model,
		Profile:   profile,
		Params:    params,
		Risk:      p.cfg.RiskParamsFor(profile.Regime),
		Labeling:  p.cfg.Labeling,
		Backtest:  p.cfg.Backtest,
		Training:  p.cfg.Training,
		Result:    res,
	}
	path, err := model.SaveArtifact(p.cfg.ModelDir, a)
	if err != nil {
		return nil, err
	}
	p.log.Info("model saved", logger.String("symbol", symbol), logger.String("path", path))
	return &TrainOutcome{Path: path, Artifact: a, Result: res}, nil
}

// BacktestRequest selects the model and replay window of a backtest.
type BacktestRequest struct {
	ModelPath string
	// Symbol and Period default to the ones the model was trained on.
	Symbol     string
	Period     domrepo.Period
	TestOnly   bool
	RegimeAuto bool
	// Regime, when set, forces the risk regime of the replay.
	Regime models.VolatilityRegime
}

// BacktestOutcome is the result of a backtest run.
type BacktestOutcome struct {
	Run    *models.RunRecord
	Report *models.PerformanceReport
	Trips  []models.RoundTrip
	Result *backtest.Result
	Regime models.VolatilityRegime
}

// Backtest loads an artifact, rebuilds features over fresh bars and replays
// the model's signals through the backtest engine.
func (p *Pipeline) Backtest(ctx context.Context, req BacktestRequest) (out *BacktestOutcome, err error) {
	started := time.Now()
	defer func() { p.finish("backtest", started, err) }()

	a, err := model.LoadArtifact(req.ModelPath)
	if err != nil {
		return nil, err
	}
	symbol := strings.ToUpper(firstNonEmpty(req.Symbol, a.Symbol, p.cfg.DataSource.Symbol))
	period := req.Period
	if period == "" {
		period = domrepo.NormalizePeriod(firstNonEmpty(a.Period, p.cfg.DataSource.Period))
	}

	eng := p.engineer(symbol, a.Labeling)
	bars, err := p.fetch(ctx, symbol, period, eng.MinBars())
	if err != nil {
		return nil, err
	}
	fm := eng.Build(symbol, bars)
	if !fm.Labeled() {
		return nil, models.NewPipelineError(models.ErrInsufficientFeatures, "features", symbol).
			WithMessage("no labeled rows from %d bars", len(bars))
	}
	if req.TestOnly {
		split := model.NewTrainer(a.Training).SplitIndex(fm.Len())
		fm = fm.Slice(split, fm.Len())
	}

	regime := a.Regime()
	risk := a.Risk
	switch {
	case req.Regime != "":
		regime = req.Regime
		risk = p.cfg.RiskParamsFor(regime)
	case req.RegimeAuto:
		regime = p.profiler.ProfileMatrix(fm).Regime
		risk = p.cfg.RiskParamsFor(regime)
	case risk.MaxDailyTrades == 0:
		risk = p.cfg.RiskParamsFor(regime)
	}
	p.log.Info("backtest starting",
		logger.String("symbol", symbol),
		logger.String("model", req.ModelPath),
		logger.String("regime", string(regime)),
		logger.Int("rows", fm.Len()),
		logger.Bool("test_only", req.TestOnly),
	)

	signals, err := model.NewPredictor(a.Model).Predict(fm)
	if err != nil {
		return nil, err
	}
	res, err := backtest.NewEngine(
		backtest.NewConfig(p.cfg.Backtest, risk),
		backtest.WithLogger(p.log),
		backtest.WithMetrics(p.metrics),
	).Run(fm, signals)
	if err != nil {
		return nil, err
	}

	rep, trips := report.Build(res, regime)
	if p.out != nil {
		if err := report.Render(p.out, rep, trips); err != nil {
			return nil, fmt.Errorf("render report: %w", err)
		}
	}

	rec := &models.RunRecord{
		Symbol:    symbol,
		ModelPath: req.ModelPath,
		Regime:    string(regime),
		StartedAt: started.UTC(),
		Report:    *rep,
	}
	p.record(ctx, rec)
	return &BacktestOutcome{Run: rec, Report: rep, Trips: trips, Result: res, Regime: regime}, nil
}

// PredictLatest scores the most recent bar with the newest artifact in the
// model directory.
func (p *Pipeline) PredictLatest(ctx context.Context, symbol string, period domrepo.Period) (snap *models.PredictionSnapshot, err error) {
	started := time.Now()
	symbol = strings.ToUpper(symbol)
	defer func() { p.finish("predict", started, err) }()

	path, err := model.LatestArtifact(p.cfg.ModelDir)
	if err != nil {
		return nil, err
	}
	a, err := p.artifact(path)
	if err != nil {
		return nil, err
	}

	eng := p.engineer(symbol, a.Labeling)
	bars, err := p.fetch(ctx, symbol, period, features.Warmup+1)
	if err != nil {
		return nil, err
	}
	fm := eng.BuildInference(symbol, bars)
	if fm.Len() == 0 {
		return nil, models.NewPipelineError(models.ErrInsufficientFeatures, "features", symbol).
			WithMessage("no scorable rows from %d bars", len(bars))
	}
	signals, err := model.NewPredictor(a.Model).Predict(fm)
	if err != nil {
		return nil, err
	}

	last := len(signals) - 1
	sig := signals[last]
	profile := p.profiler.ProfileMatrix(fm)
	return &models.PredictionSnapshot{
		Symbol:      symbol,
		Date:        sig.Date,
		Close:       fm.Close[last],
		Prediction:  sig.Prediction,
		ProbUp:      sig.ProbUp,
		ProbDown:    sig.ProbDown,
		Confidence:  sig.Confidence(),
		Conviction:  sig.Conviction(),
		Regime:      profile.Regime,
		SigmaAnnual: profile.SigmaAnnual,
		Vol20:       features.RealizedVolatility(features.ComputeLogReturns(bars), 20, features.TradingDaysPerYear),
		ModelPath:   path,
		HorizonDays: eng.Horizon(),
	}, nil
}

// RecentRuns lists stored backtest runs, newest first.
func (p *Pipeline) RecentRuns(ctx context.Context, symbol string, limit int) ([]models.RunRecord, error) {
	if p.runs == nil {
		return []models.RunRecord{}, nil
	}
	runs, err := p.runs.Recent(ctx, strings.ToUpper(symbol), limit)
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	return runs, nil
}

func (p *Pipeline) engineer(symbol string, lc config.LabelingConfig) *features.Engineer {
	if lc.HorizonK < 1 {
		lc = p.cfg.Labeling
	}
	return features.NewEngineer(lc.HorizonK, lc.Threshold, features.WithCalendar(features.CalendarFor(symbol)))
}

func (p *Pipeline) fetch(ctx context.Context, symbol string, period domrepo.Period, need int) ([]models.Bar, error) {
	started := time.Now()
	bars, err := p.source.Fetch(ctx, symbol, period)
	if err != nil {
		return nil, err
	}
	if p.metrics != nil {
		p.metrics.RecordBarsFetched(p.source.Name(), len(bars))
		p.metrics.RecordLatency("fetch", time.Since(started).Seconds())
	}
	p.log.Debug("bars fetched",
		logger.String("symbol", symbol),
		logger.String("source", p.source.Name()),
		logger.String("period", string(period)),
		logger.Int("bars", len(bars)),
	)
	if len(bars) < need {
		pe := models.NewPipelineError(models.ErrDataUnavailable, "fetch", symbol).
			WithMessage("%d bars for period %s, need at least %d", len(bars), period, need)
		if len(bars) > 0 {
			pe = pe.WithDate(bars[len(bars)-1].Date)
		}
		return nil, pe
	}
	return bars, nil
}

// artifact loads path once and serves later calls from memory.
func (p *Pipeline) artifact(path string) (*model.Artifact, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if a, ok := p.loaded[path]; ok {
		return a, nil
	}
	a, err := model.LoadArtifact(path)
	if err != nil {
		return nil, err
	}
	p.loaded = map[string]*model.Artifact{path: a}
	return a, nil
}

// record stores and publishes a run. Failures are logged, the run itself stands.
func (p *Pipeline) record(ctx context.Context, rec *models.RunRecord) {
	if p.runs != nil {
		if err := p.runs.Save(ctx, rec); err != nil {
			p.log.Warn("run not stored", logger.String("symbol", rec.Symbol), logger.Error(err))
			p.recordError(err)
		}
	}
	if p.publisher != nil {
		if err := p.publisher.PublishReport(ctx, rec); err != nil {
			p.log.Warn("report not published", logger.String("symbol", rec.Symbol), logger.Error(err))
			p.recordError(err)
		}
	}
}

func (p *Pipeline) finish(stage string, started time.Time, err error) {
	if p.metrics != nil {
		p.metrics.RecordLatency(stage, time.Since(started).Seconds())
	}
	if err != nil {
		p.recordError(err)
		p.log.Error(stage+" failed", logger.String("stage", stage), logger.Error(err))
	}
}

func (p *Pipeline) recordError(err error) {
	if p.metrics != nil {
		p.metrics.RecordError(KindName(err))
	}
}

// KindName returns a metrics label for err's kind.
func KindName(err error) string {
	kind := models.KindOf(err)
	if kind == nil {
		return "other"
	}
	return strings.ReplaceAll(kind.Error(), " ", "_")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
