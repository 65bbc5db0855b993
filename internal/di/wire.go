//go:build wireinject
// +build wireinject

package di

import (
	"SignalFuse/pkg/config"
	"SignalFuse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisCache,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideDecisionStore,
		ProvidePerformanceStore,
		ProvideArchive,
		ProvideDecisionPublisher,

		// Engine services
		ProvideTrustModel,
		ProvideSentimentStream,
		ProvidePredictorSources,
		ProvideCollector,
		ProvideResolver,
		ProvideStability,

		// Use cases
		ProvideEvaluator,
		ProvideCycleRunner,
		ProvideOutcomeIngest,
		ProvideOutcomePipeline,
		ProvideOutcomesHandler,
		ProvideStatusReporter,
		ProvideJobQueue,

		// HTTP API and application server
		ProvideEngineHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
