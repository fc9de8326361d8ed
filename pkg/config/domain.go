package config

import (
	"StockPredictor/internal/domain/models"
)

// ModelParams are the gradient-boosting hyperparameters of one volatility regime.
type ModelParams struct {
	MaxDepth        int     `yaml:"max_depth" json:"max_depth" validate:"gte=1,lte=16"`
	LearningRate    float64 `yaml:"learning_rate" json:"learning_rate" validate:"gt=0,lte=1"`
	NEstimators     int     `yaml:"n_estimators" json:"n_estimators" validate:"gte=1,lte=5000"`
	Subsample       float64 `yaml:"subsample" json:"subsample" validate:"gt=0,lte=1"`
	ColsampleByTree float64 `yaml:"colsample_bytree" json:"colsample_bytree" validate:"gt=0,lte=1"`
	MinChildWeight  float64 `yaml:"min_child_weight" json:"min_child_weight" validate:"gte=0"`
	RegAlpha        float64 `yaml:"reg_alpha" json:"reg_alpha" validate:"gte=0"`
	RegLambda       float64 `yaml:"reg_lambda" json:"reg_lambda" validate:"gte=0"`
}

type ModelConfig struct {
	VolatilityConfigs map[string]ModelParams `yaml:"VOLATILITY_CONFIGS" validate:"dive"`
}

// RiskParams are the resolved risk limits used by the backtester.
type RiskParams struct {
	MaxPositionSize     float64 `json:"max_position_size"`
	StopLossPct         float64 `json:"stop_loss_pct"`
	TakeProfitPct       float64 `json:"take_profit_pct"`
	MaxDailyTrades      int     `json:"max_daily_trades"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
}

// RiskOverride holds the optional per-regime overrides; nil fields inherit the base value.
type RiskOverride struct {
	MaxPositionSize     *float64 `yaml:"max_position_size"`
	StopLossPct         *float64 `yaml:"stop_loss_pct"`
	TakeProfitPct       *float64 `yaml:"take_profit_pct"`
	MaxDailyTrades      *int     `yaml:"max_daily_trades"`
	ConfidenceThreshold *float64 `yaml:"confidence_threshold"`
}

type RiskManagement struct {
	MaxPositionSize       float64                 `yaml:"max_position_size" default:"0.02" validate:"gt=0,lte=1"`
	StopLossPct           float64                 `yaml:"stop_loss_pct" default:"0.05" validate:"gt=0,lt=1"`
	TakeProfitPct         float64                 `yaml:"take_profit_pct" default:"0.10" validate:"gt=0"`
	MaxDailyTrades        int                     `yaml:"max_daily_trades" default:"2" validate:"gte=1"`
	ConfidenceThreshold   float64                 `yaml:"confidence_threshold" default:"0.50" validate:"gte=0,lte=1"`
	VolatilityRiskConfigs map[string]RiskOverride `yaml:"VOLATILITY_RISK_CONFIGS"`
}

type BacktestConfig struct {
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital" default:"100000" validate:"gt=0"`
	CommissionRate float64 `yaml:"commission_rate" json:"commission_rate" default:"0.0015" validate:"gte=0,lt=1"`
	SlippageRate   float64 `yaml:"slippage_rate" json:"slippage_rate" default:"0.0005" validate:"gte=0,lt=1"`
}

type LabelingConfig struct {
	HorizonK  int     `yaml:"horizon_K" json:"horizon_K" default:"5" validate:"gte=1"`
	Threshold float64 `yaml:"threshold" json:"threshold" validate:"gte=0"`
}

type TrainingConfig struct {
	TestSize    float64 `yaml:"test_size" json:"test_size" default:"0.2" validate:"gt=0,lt=1"`
	RandomState int64   `yaml:"random_state" json:"random_state" default:"42"`
}

// ModelParamsFor resolves MODEL_CONFIG.VOLATILITY_CONFIGS.<REGIME>_VOLATILITY.
func (c *Config) ModelParamsFor(r models.VolatilityRegime) (ModelParams, error) {
	if p, ok := c.Model.VolatilityConfigs[r.ConfigKey()]; ok {
		return p, nil
	}
	if p, ok := c.Model.VolatilityConfigs[string(r)]; ok {
		return p, nil
	}
	return ModelParams{}, models.NewPipelineError(models.ErrConfigMissing, "config", "").
		WithMessage("MODEL_CONFIG.VOLATILITY_CONFIGS.%s", r.ConfigKey())
}

// RiskParamsFor merges the base RISK_MANAGEMENT block with the regime override, if any.
func (c *Config) RiskParamsFor(r models.VolatilityRegime) RiskParams {
	p := RiskParams{
		MaxPositionSize:     c.Risk.MaxPositionSize,
		StopLossPct:         c.Risk.StopLossPct,
		TakeProfitPct:       c.Risk.TakeProfitPct,
		MaxDailyTrades:      c.Risk.MaxDailyTrades,
		ConfidenceThreshold: c.Risk.ConfidenceThreshold,
	}
	o, ok := c.Risk.VolatilityRiskConfigs[r.ConfigKey()]
	if !ok {
		o, ok = c.Risk.VolatilityRiskConfigs[string(r)]
	}
	if !ok {
		return p
	}
	if o.MaxPositionSize != nil {
		p.MaxPositionSize = *o.MaxPositionSize
	}
	if o.StopLossPct != nil {
		p.StopLossPct = *o.StopLossPct
	}
	if o.TakeProfitPct != nil {
		p.TakeProfitPct = *o.TakeProfitPct
	}
	if o.MaxDailyTrades != nil {
		p.MaxDailyTrades = *o.MaxDailyTrades
	}
	if o.ConfidenceThreshold != nil {
		p.ConfidenceThreshold = *o.ConfidenceThreshold
	}
	return p
}

// DefaultModelConfigs returns the stock per-regime hyperparameter table.
// Higher volatility gets shallower, slower, more regularized trees.
func DefaultModelConfigs() map[string]ModelParams {
	return map[string]ModelParams{
		models.RegimeLow.ConfigKey(): {
			MaxDepth: 6, LearningRate: 0.1, NEstimators: 200, Subsample: 0.8, ColsampleByTree: 0.8,
			MinChildWeight: 1, RegAlpha: 0, RegLambda: 1,
		},
		models.RegimeMedium.ConfigKey(): {
			MaxDepth: 5, LearningRate: 0.08, NEstimators: 250, Subsample: 0.8, ColsampleByTree: 0.8,
			MinChildWeight: 2, RegAlpha: 0.05, RegLambda: 1.5,
		},
		models.RegimeHigh.ConfigKey(): {
			MaxDepth: 4, LearningRate: 0.05, NEstimators: 300, Subsample: 0.7, ColsampleByTree: 0.7,
			MinChildWeight: 3, RegAlpha: 0.1, RegLambda: 2,
		},
		models.RegimeVeryHigh.ConfigKey(): {
			MaxDepth: 3, LearningRate: 0.03, NEstimators: 400, Subsample: 0.6, ColsampleByTree: 0.6,
			MinChildWeight: 5, RegAlpha: 0.2, RegLambda: 3,
		},
	}
}

// DefaultRiskConfigs returns the stock per-regime risk overrides.
func DefaultRiskConfigs() map[string]RiskOverride {
	f := func(v float64) *float64 { return &v }
	i := func(v int) *int { return &v }
	return map[string]RiskOverride{
		models.RegimeLow.ConfigKey(): {
			MaxPositionSize: f(0.03), StopLossPct: f(0.03), TakeProfitPct: f(0.06), MaxDailyTrades: i(3), ConfidenceThreshold: f(0.50),
		},
		models.RegimeMedium.ConfigKey(): {
			MaxPositionSize: f(0.02), StopLossPct: f(0.05), TakeProfitPct: f(0.10), MaxDailyTrades: i(2), ConfidenceThreshold: f(0.50),
		},
		models.RegimeHigh.ConfigKey(): {
			MaxPositionSize: f(0.015), StopLossPct: f(0.07), TakeProfitPct: f(0.14), MaxDailyTrades: i(2), ConfidenceThreshold: f(0.55),
		},
		models.RegimeVeryHigh.ConfigKey(): {
			MaxPositionSize: f(0.01), StopLossPct: f(0.10), TakeProfitPct: f(0.20), MaxDailyTrades: i(1), ConfidenceThreshold: f(0.60),
		},
	}
}
