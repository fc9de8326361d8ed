package repository

import (
	"context"

	"StockPredictor/internal/domain/models"
)

// BarSource delivers a chronologically ordered, deduplicated daily bar sequence.
// Implementations fail with models.ErrUnknownSymbol or models.ErrNetwork.
type BarSource interface {
	Fetch(ctx context.Context, symbol string, period Period) ([]models.Bar, error)
	Name() string
}

// RunStore persists backtest run records.
type RunStore interface {
	Init(ctx context.Context) error // ensure tables
	Save(ctx context.Context, rec *models.RunRecord) error
	Recent(ctx context.Context, symbol string, limit int) ([]models.RunRecord, error)
	Close() error
}

// ReportPublisher fans a finished backtest report out to downstream consumers.
type ReportPublisher interface {
	PublishReport(ctx context.Context, rec *models.RunRecord) error
	Close() error
}

type Metrics interface {
	RecordBarsFetched(source string, n int)
	RecordTrade(side string)
	RecordEntryRefused(reason string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}

// BarSink stores daily bars, replacing rows already present for the same day.
type BarSink interface {
	StoreBars(ctx context.Context, symbol string, bars []models.Bar) (int, error)
}
