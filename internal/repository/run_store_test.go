package repository

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockPredictor/internal/domain/models"
)

var runColumns = []string{"id", "symbol", "model_path", "regime", "started_at", "report_json"}

func newRunStore(t *testing.T, driver string) (*SQLRunStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLRunStore(sqlx.NewDb(db, driver), time.Second), mock
}

func TestRunStoreInit(t *testing.T) {
	s, mock := newRunStore(t, "sqlite")
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS backtest_runs").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_backtest_runs_symbol_started").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Init(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunStoreSaveAssignsID(t *testing.T) {
	s, mock := newRunStore(t, "sqlite")
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rec := &models.RunRecord{
		Symbol:    "AAPL",
		ModelPath: "models/stock_predictor_20240501_100000.model",
		Regime:    "LOW",
		StartedAt: started,
		Report:    models.PerformanceReport{Symbol: "AAPL", NumTrades: 4, TotalReturn: 0.012},
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO backtest_runs (id, symbol, model_path, regime, started_at, report_json) VALUES (?, ?, ?, ?, ?, ?)")).
		WithArgs(sqlmock.AnyArg(), "AAPL", rec.ModelPath, "LOW", started, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.Save(context.Background(), rec))
	assert.Len(t, rec.ID, 36)

	var rep models.PerformanceReport
	require.NoError(t, json.Unmarshal([]byte(rec.Payload), &rep))
	assert.Equal(t, 4, rep.NumTrades)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunStoreRecentDecodesReports(t *testing.T) {
	s, mock := newRunStore(t, "sqlite")
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, symbol, model_path, regime, started_at, report_json FROM backtest_runs WHERE symbol = ? ORDER BY started_at DESC LIMIT ?")).
		WithArgs("AAPL", 5).
		WillReturnRows(sqlmock.NewRows(runColumns).
			AddRow("id-1", "AAPL", "m1", "MEDIUM", started, `{"symbol":"AAPL","num_trades":6,"sharpe_ratio":1.2}`))

	runs, err := s.Recent(context.Background(), "aapl", 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "id-1", runs[0].ID)
	assert.Equal(t, "MEDIUM", runs[0].Regime)
	assert.Equal(t, 6, runs[0].Report.NumTrades)
	assert.InDelta(t, 1.2, runs[0].Report.SharpeRatio, 1e-12)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunStoreRecentRebindsForPostgres(t *testing.T) {
	s, mock := newRunStore(t, "postgres")
	mock.ExpectQuery(regexp.QuoteMeta("FROM backtest_runs ORDER BY started_at DESC LIMIT $1")).
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows(runColumns))

	runs, err := s.Recent(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunStoreRecentRejectsCorruptPayload(t *testing.T) {
	s, mock := newRunStore(t, "sqlite")
	mock.ExpectQuery("SELECT id").
		WillReturnRows(sqlmock.NewRows(runColumns).AddRow("id-2", "AAPL", "m", "LOW", time.Now(), "{not json"))

	_, err := s.Recent(context.Background(), "AAPL", 1)
	assert.Error(t, err)
}

func TestOpenRunStoreRejectsUnknownDriver(t *testing.T) {
	_, err := OpenRunStore(context.Background(), "mysql", "x")
	assert.Error(t, err)
}
