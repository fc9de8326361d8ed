package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"StockPredictor/internal/domain/models"
	domrepo "StockPredictor/internal/domain/repository"
	applogger "StockPredictor/pkg/logger"
)

// insertChunk bounds the rows per multi-row INSERT.
const insertChunk = 2000

// ClickHouseBarStore reads and writes daily bars in a ClickHouse table.
type ClickHouseBarStore struct {
	db    *sql.DB
	table string
	now   func() time.Time
	l     *applogger.Logger
}

// NewClickHouseBarStore creates a store over table (e.g. market.daily_bars).
func NewClickHouseBarStore(db *sql.DB, table string) *ClickHouseBarStore {
	return &ClickHouseBarStore{db: db, table: table, now: time.Now, l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (s *ClickHouseBarStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *ClickHouseBarStore) Name() string { return "clickhouse" }

// Schema returns the idempotent DDL for the bar table.
func (s *ClickHouseBarStore) Schema() []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            symbol LowCardinality(String),
            day    Date,
            open   Float64,
            high   Float64,
            low    Float64,
            close  Float64,
            volume Float64
        ) ENGINE = ReplacingMergeTree
        ORDER BY (symbol, day)
    `, s.table)}
}

// Fetch returns the stored bars of symbol inside period, oldest first.
func (s *ClickHouseBarStore) Fetch(ctx context.Context, symbol string, period domrepo.Period) ([]models.Bar, error) {
	start := time.Now()
	symbol = NormalizeSymbol(symbol)
	period = domrepo.NormalizePeriod(string(period))
	from := models.CalendarDay(period.Start(s.now().UTC()))

	q := fmt.Sprintf(`SELECT day, open, high, low, close, volume FROM %s WHERE symbol = ? AND day >= ? ORDER BY day ASC`, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, from)
	if err != nil {
		s.l.Error("clickhouse bars query error",
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return nil, models.NewPipelineError(models.ErrNetwork, "fetch", symbol).WithError(err)
	}
	defer rows.Close()

	out := make([]models.Bar, 0, 512)
	for rows.Next() {
		var b models.Bar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, models.NewPipelineError(models.ErrNetwork, "fetch", symbol).WithError(fmt.Errorf("scan bar: %w", err))
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewPipelineError(models.ErrNetwork, "fetch", symbol).WithError(fmt.Errorf("rows: %w", err))
	}
	out = NormalizeBars(symbol, out)
	if len(out) == 0 {
		return nil, models.NewPipelineError(models.ErrUnknownSymbol, "fetch", symbol).
			WithMessage("no rows in %s", s.table)
	}

	s.l.Debug("clickhouse bars ok",
		applogger.String("table", s.table),
		applogger.String("symbol", symbol),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

// StoreBars upserts bars for symbol with chunked multi-row inserts.
func (s *ClickHouseBarStore) StoreBars(ctx context.Context, symbol string, bars []models.Bar) (int, error) {
	symbol = NormalizeSymbol(symbol)
	bars = NormalizeBars(symbol, bars)
	written := 0
	for start := 0; start < len(bars); start += insertChunk {
		end := start + insertChunk
		if end > len(bars) {
			end = len(bars)
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*7)
		for _, b := range bars[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args, symbol, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume)
		}
		q := fmt.Sprintf("INSERT INTO %s (symbol, day, open, high, low, close, volume) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return written, fmt.Errorf("insert bars: %w", err)
		}
		written += end - start
	}
	s.l.Info("clickhouse bars stored",
		applogger.String("table", s.table),
		applogger.String("symbol", symbol),
		applogger.Int("rows", written),
	)
	return written, nil
}

var _ domrepo.BarSource = (*ClickHouseBarStore)(nil)
var _ domrepo.BarSink = (*ClickHouseBarStore)(nil)
