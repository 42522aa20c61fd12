//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/n2ilva/MotoristaInteligente-sub003/pkg/config"
	"github.com/n2ilva/MotoristaInteligente-sub003/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideBucketStore,
		ProvideOfferArchive,
		ProvideOfferPublisher,

		// Core components
		ProvideFieldParser,
		ProvideSessionRegistry,
		ProvideAggregator,
		ProvideObservationProcessor,

		// Ingest paths
		ProvideDeviceStream,
		ProvideObservationCollector,
		ProvideKafkaConsumer,
		ProvideKafkaObservationsHandler,

		// Read API
		ProvideDemandReader,
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
