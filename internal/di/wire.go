//go:build wireinject
// +build wireinject

package di

import (
	"MacroCompass/internal/usecase"
	"MacroCompass/pkg/config"
	"MacroCompass/pkg/server"

	"github.com/google/wire"
)

var pipelineSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideBreakers,
	ProvideHTTPClient,
	ProvideMacroSource,
	ProvidePriceSource,
	ProvideSentimentSource,
	ProvideIndicatorFetcher,
	ProvideAggregator,
	ProvideRegimeEngine,
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		pipelineSet,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideSharedCache,
		ProvideChartCache,

		// Repositories
		ProvideSnapshotStore,
		ProvideSnapshotPublisher,

		// Use cases
		ProvideSnapshotRecorder,
		ProvideSnapshotPipeline,
		ProvideRegimeCache,
		ProvideKafkaSnapshotsHandler,

		// Delivery
		ProvideRegimeHandler,
		ProvideStatusHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}

// InitializeRegimeEngine wires the bare scoring pipeline for one-shot runs.
func InitializeRegimeEngine(cfg *config.Config) (*usecase.RegimeEngine, error) {
	wire.Build(pipelineSet)
	return &usecase.RegimeEngine{}, nil
}
