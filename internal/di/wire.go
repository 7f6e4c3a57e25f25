//go:build wireinject
// +build wireinject

package di

import (
	"ComputeOracle/pkg/config"
	"ComputeOracle/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisStore,
		ProvideClickHouseClient,
		ProvideSignalArchive,
		ProvideEventPublisher,

		// Repositories
		ProvideGraphStore,
		ProvideSignalStore,
		ProvidePredictionRepository,
		ProvideEvaluationRepository,
		ProvideLearningLog,

		// Oracles and sources
		ProvideOracleClient,
		ProvidePredictor,
		ProvideReasoner,
		ProvideSpotSource,
		ProvideEIASource,
		ProvideIngestor,

		// Use cases
		ProvideEvaluator,
		ProvideLearner,
		ProvideOrchestrator,
		ProvideQueue,
		ProvideReplayEngine,
		ProvideScheduler,

		// Transport
		ProvideHTTPHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}
