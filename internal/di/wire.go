//go:build wireinject
// +build wireinject

package di

import (
	"StockPredictor/internal/usecase"
	"StockPredictor/pkg/config"
	"StockPredictor/pkg/server"

	"github.com/google/wire"
)

var infraSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideHTTPClient,
	ProvideClickHouseClient,
	ProvideClickHouseBarStore,
	ProvideYahooBarSource,
)

var pipelineSet = wire.NewSet(
	infraSet,
	ProvideCache,
	ProvideBarSource,
	ProvideRunStore,
	ProvideReportPublisher,
	ProvidePipeline,
)

// InitializePipeline wires the pipeline used by the train and backtest commands.
func InitializePipeline(cfg *config.Config) (*usecase.Pipeline, func(), error) {
	wire.Build(pipelineSet)
	return nil, nil, nil
}

// InitializeIngestor wires the Yahoo to ClickHouse backfill.
func InitializeIngestor(cfg *config.Config) (*usecase.Ingestor, func(), error) {
	wire.Build(infraSet, ProvideIngestor)
	return nil, nil, nil
}

// InitializeApp wires up all dependencies and returns the HTTP application.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		pipelineSet,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}
