package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockPredictor/internal/domain/models"
	domrepo "StockPredictor/internal/domain/repository"
	xlogger "StockPredictor/pkg/logger"
)

type stubReader struct {
	snap      *models.PredictionSnapshot
	runs      []models.RunRecord
	err       error
	gotSymbol string
	gotPeriod domrepo.Period
	gotLimit  int
}

func (s *stubReader) PredictLatest(_ context.Context, symbol string, period domrepo.Period) (*models.PredictionSnapshot, error) {
	s.gotSymbol, s.gotPeriod = symbol, period
	return s.snap, s.err
}

func (s *stubReader) RecentRuns(_ context.Context, symbol string, limit int) ([]models.RunRecord, error) {
	s.gotSymbol, s.gotLimit = symbol, limit
	return s.runs, s.err
}

func newTestEcho(uc PipelineReader) *echo.Echo {
	e := echo.New()
	NewPipelineEchoHandler(xlogger.Nop(), uc).RegisterRoutes(e)
	return e
}

func get(e *echo.Echo, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestPredict_OK(t *testing.T) {
	uc := &stubReader{snap: &models.PredictionSnapshot{
		Symbol: "AAPL", Date: time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC),
		Prediction: 1, ProbUp: 0.7, ProbDown: 0.3, Confidence: 0.7, Regime: models.RegimeMedium,
	}}
	rec := get(newTestEcho(uc), "/api/predict?symbol=AAPL&period=1y")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "AAPL", uc.gotSymbol)
	assert.Equal(t, domrepo.Period1y, uc.gotPeriod)
	assert.Equal(t, "private, max-age=60", rec.Header().Get(echo.HeaderCacheControl))

	var body struct {
		Status int                       `json:"status"`
		Data   models.PredictionSnapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusOK, body.Status)
	assert.Equal(t, 1, body.Data.Prediction)
	assert.InDelta(t, 0.7, body.Data.ProbUp, 1e-12)
	assert.Equal(t, models.RegimeMedium, body.Data.Regime)
}

func TestPredict_DefaultsPeriod(t *testing.T) {
	uc := &stubReader{snap: &models.PredictionSnapshot{Symbol: "MSFT"}}
	rec := get(newTestEcho(uc), "/api/predict?symbol=MSFT")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domrepo.Period2y, uc.gotPeriod)
}

func TestPredict_Validation(t *testing.T) {
	e := newTestEcho(&stubReader{})

	assert.Equal(t, http.StatusBadRequest, get(e, "/api/predict").Code)
	assert.Equal(t, http.StatusBadRequest, get(e, "/api/predict?symbol=AAPL&period=3d").Code)
}

func TestPredict_ErrorKinds(t *testing.T) {
	cases := []struct {
		kind error
		want int
	}{
		{models.ErrUnknownSymbol, http.StatusNotFound},
		{models.ErrModelNotFitted, http.StatusServiceUnavailable},
		{models.ErrArtifactCorrupt, http.StatusServiceUnavailable},
		{models.ErrNetwork, http.StatusServiceUnavailable},
		{models.ErrDataUnavailable, http.StatusUnprocessableEntity},
		{models.ErrInsufficientFeatures, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.kind.Error(), func(t *testing.T) {
			uc := &stubReader{err: models.NewPipelineError(tc.kind, "predict", "AAPL")}
			rec := get(newTestEcho(uc), "/api/predict?symbol=AAPL")
			assert.Equal(t, tc.want, rec.Code)
		})
	}

	uc := &stubReader{err: errors.New("boom")}
	assert.Equal(t, http.StatusInternalServerError, get(newTestEcho(uc), "/api/predict?symbol=AAPL").Code)
}

func TestRuns_List(t *testing.T) {
	uc := &stubReader{runs: []models.RunRecord{
		{ID: "a", Symbol: "AAPL", Regime: "LOW"},
		{ID: "b", Symbol: "AAPL", Regime: "HIGH"},
	}}
	rec := get(newTestEcho(uc), "/api/runs?symbol=AAPL&limit=5")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, uc.gotLimit)
	var body struct {
		Data struct {
			Rows  []models.RunRecord `json:"rows"`
			Total int64              `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(2), body.Data.Total)
	assert.Equal(t, "b", body.Data.Rows[1].ID)
}

func TestRuns_DefaultLimitAndBounds(t *testing.T) {
	uc := &stubReader{}
	e := newTestEcho(uc)

	require.Equal(t, http.StatusOK, get(e, "/api/runs").Code)
	assert.Equal(t, 20, uc.gotLimit)
	assert.Equal(t, http.StatusBadRequest, get(e, "/api/runs?limit=1000").Code)
}

func TestHealth(t *testing.T) {
	rec := get(newTestEcho(&stubReader{}), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}
