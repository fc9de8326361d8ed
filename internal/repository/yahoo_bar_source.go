package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"StockPredictor/internal/domain/models"
	domrepo "StockPredictor/internal/domain/repository"
	xhttp "StockPredictor/pkg/http"
	applogger "StockPredictor/pkg/logger"
)

// YahooBarSource fetches daily bars from the Yahoo Finance chart API.
type YahooBarSource struct {
	baseURL string
	client  *xhttp.Client
	l       *applogger.Logger
}

// YahooOption configures YahooBarSource.
type YahooOption func(*YahooBarSource)

// WithYahooLogger injects a structured logger.
func WithYahooLogger(l *applogger.Logger) YahooOption {
	return func(s *YahooBarSource) { s.l = l }
}

// NewYahooBarSource creates a source against baseURL using client.
func NewYahooBarSource(baseURL string, client *xhttp.Client, opts ...YahooOption) *YahooBarSource {
	s := &YahooBarSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		l:       applogger.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *YahooBarSource) Name() string { return "yahoo" }

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string `json:"symbol"`
				GMTOffset int64  `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Fetch returns daily bars for symbol over period.
func (s *YahooBarSource) Fetch(ctx context.Context, symbol string, period domrepo.Period) ([]models.Bar, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, models.NewPipelineError(models.ErrUnknownSymbol, "fetch", symbol).WithMessage("empty symbol")
	}
	period = domrepo.NormalizePeriod(string(period))

	body, err := s.client.Do(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    s.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol),
		QueryParams: map[string][]string{
			"interval": {"1d"},
			"range":    {string(period)},
		},
	})
	if err != nil {
		return nil, s.classify(symbol, err)
	}

	var cr chartResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, models.NewPipelineError(models.ErrNetwork, "fetch", symbol).WithError(fmt.Errorf("decode chart: %w", err))
	}
	if cr.Chart.Error != nil {
		return nil, chartError(symbol, cr.Chart.Error.Code, cr.Chart.Error.Description)
	}
	if len(cr.Chart.Result) == 0 || len(cr.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, models.NewPipelineError(models.ErrUnknownSymbol, "fetch", symbol).WithMessage("empty chart result")
	}

	res := cr.Chart.Result[0]
	q := res.Indicators.Quote[0]
	bars := make([]models.Bar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		o, h, lo, c, v := at(q.Open, i), at(q.High, i), at(q.Low, i), at(q.Close, i), at(q.Volume, i)
		if o == nil || h == nil || lo == nil || c == nil {
			continue
		}
		vol := 0.0
		if v != nil {
			vol = *v
		}
		// exchange-local calendar date
		d := time.Unix(ts+res.Meta.GMTOffset, 0).UTC()
		bars = append(bars, models.Bar{Date: d, Open: *o, High: *h, Low: *lo, Close: *c, Volume: vol})
	}
	bars = NormalizeBars(symbol, bars)
	if len(bars) == 0 {
		return nil, models.NewPipelineError(models.ErrUnknownSymbol, "fetch", symbol).WithMessage("no usable bars")
	}

	s.l.Debug("yahoo bars fetched",
		applogger.String("symbol", symbol),
		applogger.String("period", string(period)),
		applogger.Int("bars", len(bars)),
	)
	return bars, nil
}

func (s *YahooBarSource) classify(symbol string, err error) error {
	var se *xhttp.StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		var cr chartResponse
		if json.Unmarshal(se.Body, &cr) == nil && cr.Chart.Error != nil {
			return chartError(symbol, cr.Chart.Error.Code, cr.Chart.Error.Description)
		}
		return models.NewPipelineError(models.ErrUnknownSymbol, "fetch", symbol).WithError(err)
	}
	s.l.Warn("yahoo request failed", applogger.String("symbol", symbol), applogger.Error(err))
	return models.NewPipelineError(models.ErrNetwork, "fetch", symbol).WithError(err)
}

func chartError(symbol, code, desc string) error {
	if strings.EqualFold(code, "Not Found") {
		return models.NewPipelineError(models.ErrUnknownSymbol, "fetch", symbol).WithMessage("%s", desc)
	}
	return models.NewPipelineError(models.ErrNetwork, "fetch", symbol).WithMessage("%s: %s", code, desc)
}

func at(xs []*float64, i int) *float64 {
	if i < len(xs) {
		return xs[i]
	}
	return nil
}

var _ domrepo.BarSource = (*YahooBarSource)(nil)
