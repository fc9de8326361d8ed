package repository

import (
	"context"
	"errors"
	"time"

	"StockPredictor/internal/domain/models"
	domrepo "StockPredictor/internal/domain/repository"
	"StockPredictor/pkg/cache"
	applogger "StockPredictor/pkg/logger"
)

// CachedBarSource serves bar sequences from a cache before asking the wrapped source.
// Keys carry the UTC date so a cached sequence never outlives its trading day.
type CachedBarSource struct {
	next  domrepo.BarSource
	cache cache.Service
	ttl   time.Duration
	now   func() time.Time
	l     *applogger.Logger
}

var _ domrepo.BarSource = (*CachedBarSource)(nil)

// NewCachedBarSource wraps next with c.
func NewCachedBarSource(next domrepo.BarSource, c cache.Service, ttl time.Duration, l *applogger.Logger) *CachedBarSource {
	if l == nil {
		l = applogger.Nop()
	}
	return &CachedBarSource{next: next, cache: c, ttl: ttl, now: time.Now, l: l}
}

func (s *CachedBarSource) Name() string { return s.next.Name() }

// Key returns the cache key for symbol and period on the current day.
func (s *CachedBarSource) Key(symbol string, period domrepo.Period) string {
	return cache.GenerateKeyWithParams("bars", NormalizeSymbol(symbol), domrepo.NormalizePeriod(string(period)), s.now().UTC().Format("20060102"))
}

func (s *CachedBarSource) Fetch(ctx context.Context, symbol string, period domrepo.Period) ([]models.Bar, error) {
	key := s.Key(symbol, period)

	var bars []models.Bar
	err := s.cache.Get(ctx, key, &bars)
	switch {
	case err == nil && len(bars) > 0:
		s.l.Debug("bar cache hit", applogger.String("key", key), applogger.Int("rows", len(bars)))
		return bars, nil
	case err != nil && !errors.Is(err, cache.ErrCacheMiss):
		s.l.Warn("bar cache read failed", applogger.String("key", key), applogger.Error(err))
	}

	bars, err = s.next.Fetch(ctx, symbol, period)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, bars, s.ttl); err != nil {
		s.l.Warn("bar cache write failed", applogger.String("key", key), applogger.Error(err))
	}
	return bars, nil
}
