package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"StockPredictor/internal/domain/models"
	domrepo "StockPredictor/internal/domain/repository"
)

const runsTable = "backtest_runs"

// SQLRunStore keeps the backtest run ledger in sqlite or postgres.
type SQLRunStore struct {
	db      *sqlx.DB
	timeout time.Duration
}

var _ domrepo.RunStore = (*SQLRunStore)(nil)

// OpenRunStore opens the ledger database. driver is "sqlite" or "postgres".
func OpenRunStore(ctx context.Context, driver, dsn string) (*SQLRunStore, error) {
	switch driver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("run store: unsupported driver %q", driver)
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}
	if driver == "sqlite" {
		// a single writer avoids SQLITE_BUSY under the API server
		db.SetMaxOpenConns(1)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping run store: %w", err)
	}
	return NewSQLRunStore(db, 30*time.Second), nil
}

// NewSQLRunStore wraps an open connection.
func NewSQLRunStore(db *sqlx.DB, timeout time.Duration) *SQLRunStore {
	return &SQLRunStore{db: db, timeout: timeout}
}

func (s *SQLRunStore) Init(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + runsTable + ` (
			id          VARCHAR(36) PRIMARY KEY,
			symbol      VARCHAR(32) NOT NULL,
			model_path  TEXT NOT NULL,
			regime      VARCHAR(16) NOT NULL,
			started_at  TIMESTAMP NOT NULL,
			report_json TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_` + runsTable + `_symbol_started ON ` + runsTable + ` (symbol, started_at)`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("init run store: %w", err)
		}
	}
	return nil
}

// Save inserts rec, assigning an id when it has none.
func (s *SQLRunStore) Save(ctx context.Context, rec *models.RunRecord) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	payload, err := json.Marshal(rec.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	rec.Payload = string(payload)

	q := s.db.Rebind(`INSERT INTO ` + runsTable + ` (id, symbol, model_path, regime, started_at, report_json) VALUES (?, ?, ?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, q, rec.ID, rec.Symbol, rec.ModelPath, rec.Regime, rec.StartedAt.UTC(), rec.Payload); err != nil {
		return fmt.Errorf("save run %s: %w", rec.ID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first. An empty symbol lists every symbol.
func (s *SQLRunStore) Recent(ctx context.Context, symbol string, limit int) ([]models.RunRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}
	q := `SELECT id, symbol, model_path, regime, started_at, report_json FROM ` + runsTable
	args := []interface{}{}
	if symbol != "" {
		q += ` WHERE symbol = ?`
		args = append(args, NormalizeSymbol(symbol))
	}
	q += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	var out []models.RunRecord
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	for i := range out {
		if err := json.Unmarshal([]byte(out[i].Payload), &out[i].Report); err != nil {
			return nil, fmt.Errorf("decode run %s: %w", out[i].ID, err)
		}
	}
	return out, nil
}

func (s *SQLRunStore) Close() error {
	return s.db.Close()
}

// NoopRunStore is used when the ledger is disabled.
type NoopRunStore struct{}

var _ domrepo.RunStore = NoopRunStore{}

func (NoopRunStore) Init(context.Context) error                    { return nil }
func (NoopRunStore) Save(context.Context, *models.RunRecord) error { return nil }
func (NoopRunStore) Recent(context.Context, string, int) ([]models.RunRecord, error) {
	return nil, nil
}
func (NoopRunStore) Close() error { return nil }
