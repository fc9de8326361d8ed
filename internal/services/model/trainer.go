package model

import (
	"math"
	"sort"
	"time"

	"StockPredictor/internal/domain/models"
	"StockPredictor/pkg/config"
	"StockPredictor/pkg/logger"
)

// FeatureImportance is one entry of the importance ranking.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// TrainResult is the outcome of one training run.
type TrainResult struct {
	Model          *Model                   `json:"-"`
	Params         config.ModelParams       `json:"params"`
	ScalePosWeight float64                  `json:"scale_pos_weight"`
	Profile        models.VolatilityProfile `json:"profile"`
	TrainMetrics   ClassificationMetrics    `json:"train_metrics"`
	TestMetrics    ClassificationMetrics    `json:"test_metrics"`
	Importances    []FeatureImportance      `json:"importances"`
	TrainRows      int                      `json:"train_rows"`
	TestRows       int                      `json:"test_rows"`
	TrainStart     time.Time                `json:"train_start"`
	TestStart      time.Time                `json:"test_start"`
	Duration       time.Duration            `json:"duration"`
}

// Trainer fits the direction classifier.
type Trainer struct {
	testSize float64
	seed     int64
	log      *logger.Logger
}

// TrainerOption configures a Trainer.
type TrainerOption func(*Trainer)

// WithTrainerLogger sets the logger.
func WithTrainerLogger(l *logger.Logger) TrainerOption {
	return func(t *Trainer) { t.log = l }
}

// NewTrainer creates a trainer using a chronological split of testSize.
func NewTrainer(cfg config.TrainingConfig, opts ...TrainerOption) *Trainer {
	t := &Trainer{testSize: cfg.TestSize, seed: cfg.RandomState, log: logger.Nop()}
	if t.testSize <= 0 || t.testSize >= 1 {
		t.testSize = 0.2
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// SplitIndex returns the first test row for n rows. The test fold is the last
// ceil(n*testSize) rows, so a fractional test size rounds the test fold up
// (n=9, testSize=0.2 gives 2 test rows and a split at 7).
func (t *Trainer) SplitIndex(n int) int {
	return n - int(math.Ceil(float64(n)*t.testSize))
}

// Train cleans the matrix, splits it chronologically, fits imputer, scaler and
// booster on the training fold and evaluates both folds.
func (t *Trainer) Train(fm *models.FeatureMatrix, params config.ModelParams, profile models.VolatilityProfile) (*TrainResult, error) {
	started := time.Now()
	symbol := ""
	if fm != nil {
		symbol = fm.Symbol
	}
	if !fm.Labeled() {
		return nil, models.NewPipelineError(models.ErrInsufficientFeatures, "train", symbol).
			WithMessage("feature matrix is empty")
	}

	X, y, dates := cleanRows(fm)
	if len(X) == 0 || len(fm.Columns) == 0 {
		return nil, models.NewPipelineError(models.ErrInsufficientFeatures, "train", symbol).
			WithMessage("no rows left after cleaning")
	}
	split := t.SplitIndex(len(X))
	if split < 1 {
		return nil, models.NewPipelineError(models.ErrInsufficientFeatures, "train", symbol).
			WithMessage("%d rows cannot be split with test size %.2f", len(X), t.testSize)
	}
	xTrain, yTrain := X[:split], y[:split]
	xTest, yTest := X[split:], y[split:]

	pos, neg := 0, 0
	for _, v := range yTrain {
		if v == 1 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return nil, models.NewPipelineError(models.ErrLabelDegenerate, "train", symbol).
			WithDate(dates[split-1]).
			WithMessage("training fold has a single class (%d up, %d down)", pos, neg)
	}

	imp := FitImputer(xTrain)
	xTrain = imp.Transform(xTrain)
	xTest = imp.Transform(xTest)
	sc := FitScaler(xTrain)
	xTrainS := sc.Transform(xTrain)
	xTestS := sc.Transform(xTest)

	spw := float64(neg) / float64(pos)
	booster := NewBooster(BoosterParams{
		MaxDepth:        params.MaxDepth,
		LearningRate:    params.LearningRate,
		NEstimators:     params.NEstimators,
		Subsample:       params.Subsample,
		ColsampleByTree: params.ColsampleByTree,
		MinChildWeight:  params.MinChildWeight,
		RegAlpha:        params.RegAlpha,
		RegLambda:       params.RegLambda,
		ScalePosWeight:  spw,
		Seed:            t.seed,
	})
	if err := booster.Fit(xTrainS, yTrain); err != nil {
		return nil, models.NewPipelineError(models.ErrInsufficientFeatures, "train", symbol).WithError(err)
	}

	m := &Model{
		Columns: append([]string(nil), fm.Columns...),
		Imputer: imp,
		Scaler:  sc,
		Booster: booster,
	}
	res := &TrainResult{
		Model:          m,
		Params:         params,
		ScalePosWeight: spw,
		Profile:        profile,
		TrainMetrics:   evaluateFold(booster, xTrainS, yTrain),
		TestMetrics:    evaluateFold(booster, xTestS, yTest),
		Importances:    rankImportances(m.Columns, booster.Importance()),
		TrainRows:      len(xTrain),
		TestRows:       len(xTest),
		TrainStart:     dates[0],
		TestStart:      dates[split],
		Duration:       time.Since(started),
	}

	t.log.Info("model trained",
		logger.String("symbol", symbol),
		logger.String("regime", string(profile.Regime)),
		logger.Int("train_rows", res.TrainRows),
		logger.Int("test_rows", res.TestRows),
		logger.Float64("scale_pos_weight", spw),
		logger.Float64("train_accuracy", res.TrainMetrics.Accuracy),
		logger.Float64("test_accuracy", res.TestMetrics.Accuracy),
		logger.Duration("duration", res.Duration),
	)
	return res, nil
}

// cleanRows copies feature rows with infinities turned into NaN and drops rows
// in which every feature is NaN.
func cleanRows(fm *models.FeatureMatrix) ([][]float64, []int, []time.Time) {
	X := make([][]float64, 0, fm.Len())
	y := make([]int, 0, fm.Len())
	dates := make([]time.Time, 0, fm.Len())
	for i, row := range fm.Values {
		r := make([]float64, len(row))
		hasValue := false
		for j, v := range row {
			if math.IsInf(v, 0) {
				v = math.NaN()
			}
			if !math.IsNaN(v) {
				hasValue = true
			}
			r[j] = v
		}
		if !hasValue {
			continue
		}
		X = append(X, r)
		y = append(y, fm.Direction[i])
		dates = append(dates, fm.Dates[i])
	}
	return X, y, dates
}

func evaluateFold(b *Booster, X [][]float64, y []int) ClassificationMetrics {
	if len(X) == 0 {
		return ClassificationMetrics{}
	}
	probs, err := b.PredictProba(X)
	if err != nil {
		return ClassificationMetrics{}
	}
	pred := make([]int, len(probs))
	for i, p := range probs {
		pred[i] = classOf(p)
	}
	return Evaluate(y, pred)
}

func rankImportances(cols []string, imp []float64) []FeatureImportance {
	out := make([]FeatureImportance, len(cols))
	for i, c := range cols {
		out[i] = FeatureImportance{Feature: c, Importance: imp[i]}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Importance > out[b].Importance })
	return out
}

func classOf(pUp float64) int {
	if pUp > 0.5 {
		return 1
	}
	return 0
}
