package models

import "time"

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// TradeReason explains why a fill happened.
type TradeReason string

const (
	ReasonSignalEntry TradeReason = "signal_entry"
	ReasonStopLoss    TradeReason = "stop_loss"
	ReasonTakeProfit  TradeReason = "take_profit"
	ReasonSignalExit  TradeReason = "signal_exit"
	ReasonEndOfData   TradeReason = "end_of_data"
)

// Trade is one fill in the backtest log.
type Trade struct {
	Date          time.Time   `json:"date"`
	Side          Side        `json:"side"`
	Price         float64     `json:"price"`
	Quantity      float64     `json:"quantity"`
	PositionValue float64     `json:"position_value"`
	Cost          float64     `json:"cost"`
	Confidence    float64     `json:"confidence"`
	CapitalAfter  float64     `json:"capital_after"`
	Reason        TradeReason `json:"reason"`
}

// EquityPoint is the mark-to-market state recorded at each replayed bar.
type EquityPoint struct {
	Date          time.Time `json:"date"`
	Close         float64   `json:"close"`
	Cash          float64   `json:"cash"`
	PositionQty   float64   `json:"position_qty"`
	PositionValue float64   `json:"position_value"`
	Equity        float64   `json:"equity"`
}

// RoundTrip pairs a buy with the sell that closed it.
type RoundTrip struct {
	EntryDate    time.Time   `json:"entry_date"`
	ExitDate     time.Time   `json:"exit_date"`
	EntryPrice   float64     `json:"entry_price"`
	ExitPrice    float64     `json:"exit_price"`
	Quantity     float64     `json:"quantity"`
	PnL          float64     `json:"pnl"` // net of both legs' costs
	ReturnPct    float64     `json:"return_pct"`
	DurationDays float64     `json:"duration_days"`
	ExitReason   TradeReason `json:"exit_reason"`
}
