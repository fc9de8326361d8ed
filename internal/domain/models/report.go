package models

import "time"

// PerformanceReport summarizes one backtest run.
type PerformanceReport struct {
	Symbol               string           `json:"symbol"`
	Regime               VolatilityRegime `json:"regime"`
	Bars                 int              `json:"bars"`
	InitialCapital       float64          `json:"initial_capital"`
	FinalEquity          float64          `json:"final_equity"`
	TotalReturn          float64          `json:"total_return"`
	AnnualizedReturn     float64          `json:"annualized_return"`
	SharpeRatio          float64          `json:"sharpe_ratio"`
	MaxDrawdown          float64          `json:"max_drawdown"`
	AnnualizedVolatility float64          `json:"annualized_volatility"`
	WinRate              float64          `json:"win_rate"`
	AvgTradeDurationDays float64          `json:"avg_trade_duration_days"`
	NumTrades            int              `json:"num_trades"`
	RoundTrips           int              `json:"round_trips"`
	ProfitFactor         float64          `json:"profit_factor"`
	AvgWin               float64          `json:"avg_win"`
	AvgLoss              float64          `json:"avg_loss"`
	BestTrade            float64          `json:"best_trade"`
	WorstTrade           float64          `json:"worst_trade"`
	Exposure             float64          `json:"exposure"`
	AvgConviction        float64          `json:"avg_conviction"`
	TotalCosts           float64          `json:"total_costs"`
}

// RunRecord is one row of the backtest run ledger.
type RunRecord struct {
	ID        string            `db:"id" json:"id"`
	Symbol    string            `db:"symbol" json:"symbol"`
	ModelPath string            `db:"model_path" json:"model_path"`
	Regime    string            `db:"regime" json:"regime"`
	StartedAt time.Time         `db:"started_at" json:"started_at"`
	Report    PerformanceReport `db:"-" json:"report"`
	Payload   string            `db:"report_json" json:"-"`
}
