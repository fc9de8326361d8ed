package di

import (
	"context"
	"fmt"
	"os"
	"time"

	"StockPredictor/internal/domain/repository"
	"StockPredictor/internal/handler/api"
	internalrepo "StockPredictor/internal/repository"
	"StockPredictor/internal/usecase"
	"StockPredictor/pkg/cache"
	pkgch "StockPredictor/pkg/clickhouse"
	"StockPredictor/pkg/config"
	xhttp "StockPredictor/pkg/http"
	pkgkafka "StockPredictor/pkg/kafka"
	applogger "StockPredictor/pkg/logger"
	"StockPredictor/pkg/metrics"
	"StockPredictor/pkg/server"
)

// ProvideLogger creates the structured logger from the logging section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideHTTPClient creates the rate limited, circuit broken client for Yahoo.
func ProvideHTTPClient(cfg *config.Config) *xhttp.Client {
	y := cfg.DataSource.Yahoo
	return xhttp.NewClient(
		xhttp.WithTimeout(y.Timeout),
		xhttp.WithHeader("User-Agent", "Mozilla/5.0 (compatible; stockpred/1.0)"),
		xhttp.WithClientRateLimit(y.RequestsPerSecond, y.Burst),
		xhttp.WithCircuitBreaker("yahoo", y.BreakerFailures, y.BreakerTimeout),
	)
}

// ProvideClickHouseClient connects to ClickHouse and ensures the bar table.
// It returns nil when no host is configured.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if cfg.ClickHouse.Host == "" {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store := internalrepo.NewClickHouseBarStore(client.DB(), cfg.DataSource.ClickHouseTable)
	stmts := append([]string{"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database}, store.Schema()...)
	if err := client.InitSchema(ctx, stmts); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideClickHouseBarStore creates the bar table adapter, or nil without a client.
func ProvideClickHouseBarStore(client *pkgch.Client, cfg *config.Config, l *applogger.Logger) *internalrepo.ClickHouseBarStore {
	if client == nil {
		return nil
	}
	store := internalrepo.NewClickHouseBarStore(client.DB(), cfg.DataSource.ClickHouseTable)
	store.SetLogger(l)
	return store
}

// ProvideYahooBarSource creates the Yahoo chart adapter.
func ProvideYahooBarSource(cfg *config.Config, client *xhttp.Client, l *applogger.Logger) *internalrepo.YahooBarSource {
	return internalrepo.NewYahooBarSource(cfg.DataSource.Yahoo.BaseURL, client,
		internalrepo.WithYahooLogger(l),
	)
}

// ProvideCache creates the bar cache: memory only, or memory in front of Redis.
// It returns nil when caching is disabled.
func ProvideCache(cfg *config.Config) (cache.Service, func(), error) {
	if !cfg.Cache.Enabled {
		return nil, func() {}, nil
	}
	if !cfg.Cache.Redis.Enabled {
		mc := cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize))
		return mc, func() { _ = mc.Close() }, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Cache.Redis.Host),
		cache.WithRedisPort(cfg.Cache.Redis.Port),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
		cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	lc := cache.NewLayeredCache(rc, cache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize))
	return lc, func() { _ = lc.Close() }, nil
}

// ProvideBarSource selects the configured source and wraps it with the cache.
func ProvideBarSource(
	cfg *config.Config,
	yahoo *internalrepo.YahooBarSource,
	ch *internalrepo.ClickHouseBarStore,
	c cache.Service,
	l *applogger.Logger,
) (repository.BarSource, error) {
	var src repository.BarSource = yahoo
	if cfg.DataSource.Type == "clickhouse" {
		if ch == nil {
			return nil, fmt.Errorf("bar source: clickhouse selected but not configured")
		}
		src = ch
	}
	if c != nil {
		src = internalrepo.NewCachedBarSource(src, c, cfg.Cache.TTL, l)
	}
	l.Info("bar source ready", applogger.String("source", src.Name()), applogger.Bool("cached", c != nil))
	return src, nil
}

// ProvideRunStore opens the run ledger, or a no-op store when disabled.
func ProvideRunStore(cfg *config.Config) (repository.RunStore, func(), error) {
	if !cfg.RunStore.Enabled {
		return internalrepo.NoopRunStore{}, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := internalrepo.OpenRunStore(ctx, cfg.RunStore.Driver, cfg.RunStore.DSN)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("run store schema: %w", err)
	}
	return store, func() { _ = store.Close() }, nil
}

// ProvideReportPublisher creates the Kafka report publisher, or a no-op one when disabled.
func ProvideReportPublisher(cfg *config.Config) (repository.ReportPublisher, func(), error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NoopReportPublisher{}, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	pub := internalrepo.NewKafkaReportPublisher(producer, cfg.Kafka.Topic)
	return pub, func() { _ = pub.Close() }, nil
}

// ProvidePipeline creates the train/backtest/predict use case. Reports render to stdout.
func ProvidePipeline(
	cfg *config.Config,
	src repository.BarSource,
	runs repository.RunStore,
	pub repository.ReportPublisher,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.Pipeline {
	return usecase.NewPipeline(cfg, src,
		usecase.WithRunStore(runs),
		usecase.WithReportPublisher(pub),
		usecase.WithMetrics(m),
		usecase.WithLogger(l),
		usecase.WithReportWriter(os.Stdout),
	)
}

// ProvideIngestor creates the Yahoo to ClickHouse backfill use case.
func ProvideIngestor(
	yahoo *internalrepo.YahooBarSource,
	ch *internalrepo.ClickHouseBarStore,
	m repository.Metrics,
	l *applogger.Logger,
) (*usecase.Ingestor, error) {
	if ch == nil {
		return nil, fmt.Errorf("ingest: clickhouse.host is not configured")
	}
	return usecase.NewIngestor(yahoo, ch, m, l), nil
}

// ProvideHTTPServer creates the echo server with the pipeline read API.
func ProvideHTTPServer(cfg *config.Config, p *usecase.Pipeline, l *applogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(api.NewPipelineEchoHandler(l, p), l,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithServerRateLimit(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst),
	)
}

// ProvideApp creates the application server.
func ProvideApp(l *applogger.Logger, srv *xhttp.Server) *server.App {
	return server.New(l, srv)
}
