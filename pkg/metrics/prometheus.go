package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	barsFetched    *prometheus.CounterVec
	trades         *prometheus.CounterVec
	entriesRefused *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
}

// New registers the recorder's collectors on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the recorder's collectors on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		barsFetched: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpred_bars_fetched_total",
				Help: "Daily bars delivered by a bar source",
			},
			[]string{"source"},
		),
		trades: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpred_backtest_trades_total",
				Help: "Backtest fills by side",
			},
			[]string{"side"},
		),
		entriesRefused: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpred_entries_refused_total",
				Help: "Backtest entries refused by the risk layer",
			},
			[]string{"reason"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpred_errors_total",
				Help: "Surfaced pipeline errors by kind",
			},
			[]string{"kind"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockpred_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"stage"},
		),
	}
}

// RecordBarsFetched adds n bars delivered by source.
func (r *Recorder) RecordBarsFetched(source string, n int) {
	r.barsFetched.WithLabelValues(source).Add(float64(n))
}

// RecordTrade counts one backtest fill.
func (r *Recorder) RecordTrade(side string) {
	r.trades.WithLabelValues(side).Inc()
}

// RecordEntryRefused counts one refused entry.
func (r *Recorder) RecordEntryRefused(reason string) {
	r.entriesRefused.WithLabelValues(reason).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records stage latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
