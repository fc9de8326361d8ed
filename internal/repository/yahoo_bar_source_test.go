package repository

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockPredictor/internal/domain/models"
	domrepo "StockPredictor/internal/domain/repository"
	xhttp "StockPredictor/pkg/http"
)

// openTS is 09:30 New York time on the given day, as Yahoo reports it.
func openTS(y int, m time.Month, d int) int64 {
	return time.Date(y, m, d, 14, 30, 0, 0, time.UTC).Unix()
}

func chartJSON(ts []int64, closes []string) string {
	tsParts := make([]string, len(ts))
	for i, t := range ts {
		tsParts[i] = fmt.Sprint(t)
	}
	c := strings.Join(closes, ",")
	return fmt.Sprintf(`{"chart":{"result":[{"meta":{"symbol":"AAPL","gmtoffset":-18000},
		"timestamp":[%s],
		"indicators":{"quote":[{"open":[%s],"high":[%s],"low":[%s],"close":[%s],"volume":[%s]}]}}],"error":null}}`,
		strings.Join(tsParts, ","), c, c, c, c, c)
}

func newYahoo(t *testing.T, h http.HandlerFunc) *YahooBarSource {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewYahooBarSource(srv.URL, xhttp.NewClient(xhttp.WithTimeout(5*time.Second)))
}

func TestYahooFetchParsesAndNormalizes(t *testing.T) {
	var gotPath, gotRange, gotInterval string
	src := newYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRange = r.URL.Query().Get("range")
		gotInterval = r.URL.Query().Get("interval")
		// out of order, one null row, one duplicate day
		ts := []int64{openTS(2024, 1, 3), openTS(2024, 1, 2), openTS(2024, 1, 4), openTS(2024, 1, 3) + 60}
		_, _ = w.Write([]byte(chartJSON(ts, []string{"101", "100", "null", "102"})))
	})

	bars, err := src.Fetch(context.Background(), " aapl ", domrepo.Period1y)
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/AAPL", gotPath)
	assert.Equal(t, "1y", gotRange)
	assert.Equal(t, "1d", gotInterval)

	require.Len(t, bars, 2)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), bars[0].Date)
	assert.Equal(t, 100.0, bars[0].Close)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), bars[1].Date)
	assert.Equal(t, 102.0, bars[1].Close, "last row of a day wins")
	assert.Equal(t, "AAPL", bars[1].Symbol)
}

func TestYahooUnknownPeriodFallsBackToDefault(t *testing.T) {
	var gotRange string
	src := newYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.URL.Query().Get("range")
		_, _ = w.Write([]byte(chartJSON([]int64{openTS(2024, 1, 2)}, []string{"10"})))
	})
	_, err := src.Fetch(context.Background(), "AAPL", "7w")
	require.NoError(t, err)
	assert.Equal(t, "2y", gotRange)
}

func TestYahooNotFoundIsUnknownSymbol(t *testing.T) {
	src := newYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	})
	_, err := src.Fetch(context.Background(), "NOPE", domrepo.Period2y)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUnknownSymbol)
	assert.NotErrorIs(t, err, models.ErrNetwork)
}

func TestYahooServerErrorIsNetwork(t *testing.T) {
	src := newYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := src.Fetch(context.Background(), "AAPL", domrepo.Period2y)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNetwork)
}

func TestYahooEmptyResultIsUnknownSymbol(t *testing.T) {
	src := newYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chartJSON([]int64{openTS(2024, 1, 2)}, []string{"null"})))
	})
	_, err := src.Fetch(context.Background(), "AAPL", domrepo.Period2y)
	assert.ErrorIs(t, err, models.ErrUnknownSymbol)
}

func TestYahooUnreachableIsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	src := NewYahooBarSource(url, xhttp.NewClient(xhttp.WithTimeout(time.Second)))
	_, err := src.Fetch(context.Background(), "AAPL", domrepo.Period2y)
	assert.ErrorIs(t, err, models.ErrNetwork)
}
