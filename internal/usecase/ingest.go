package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	domrepo "StockPredictor/internal/domain/repository"
	"StockPredictor/pkg/logger"
)

// Ingestor copies bars from a source into a sink, one symbol at a time.
type Ingestor struct {
	source  domrepo.BarSource
	sink    domrepo.BarSink
	metrics domrepo.Metrics
	log     *logger.Logger
}

// NewIngestor creates an ingestor. metrics may be nil.
func NewIngestor(source domrepo.BarSource, sink domrepo.BarSink, metrics domrepo.Metrics, l *logger.Logger) *Ingestor {
	if l == nil {
		l = logger.Nop()
	}
	return &Ingestor{source: source, sink: sink, metrics: metrics, log: l}
}

// IngestResult reports the rows written per symbol.
type IngestResult struct {
	Written map[string]int
	Failed  map[string]error
}

// Ingest fetches period for every symbol and stores it. A failing symbol is
// recorded and the remaining symbols are still processed; the returned error
// is non-nil only when every symbol failed.
func (i *Ingestor) Ingest(ctx context.Context, symbols []string, period domrepo.Period) (*IngestResult, error) {
	res := &IngestResult{Written: map[string]int{}, Failed: map[string]error{}}
	for _, raw := range symbols {
		symbol := strings.ToUpper(strings.TrimSpace(raw))
		if symbol == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		started := time.Now()
		n, err := i.copy(ctx, symbol, period)
		if err != nil {
			res.Failed[symbol] = err
			if i.metrics != nil {
				i.metrics.RecordError(KindName(err))
			}
			i.log.Warn("ingest failed", logger.String("symbol", symbol), logger.Error(err))
			continue
		}
		res.Written[symbol] = n
		if i.metrics != nil {
			i.metrics.RecordLatency("ingest", time.Since(started).Seconds())
		}
		i.log.Info("ingested",
			logger.String("symbol", symbol),
			logger.String("source", i.source.Name()),
			logger.Int("rows", n),
			logger.Duration("duration", time.Since(started)),
		)
	}
	if len(res.Failed) > 0 && len(res.Written) == 0 {
		return res, fmt.Errorf("ingest: all %d symbols failed", len(res.Failed))
	}
	return res, nil
}

func (i *Ingestor) copy(ctx context.Context, symbol string, period domrepo.Period) (int, error) {
	bars, err := i.source.Fetch(ctx, symbol, period)
	if err != nil {
		return 0, err
	}
	if i.metrics != nil {
		i.metrics.RecordBarsFetched(i.source.Name(), len(bars))
	}
	return i.sink.StoreBars(ctx, symbol, bars)
}
