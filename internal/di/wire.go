//go:build wireinject
// +build wireinject

package di

import (
	"marketpulse/pkg/config"
	"marketpulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideHotCache,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideQuoteStream,

		// Repositories
		ProvideAnalysisStore,
		ProvideEventPublisher,

		// Domain services
		ProvideRegistry,
		ProvideScheduler,
		ProvideOracle,
		ProvideAnalysisCache,

		// Use cases
		ProvideSynthesizer,
		ProvideMarketService,
		ProvideSentimentHandler,

		// Transport
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
