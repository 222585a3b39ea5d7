//go:build wireinject
// +build wireinject

package di

import (
	"github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/config"
	"github.com/AstralElite-open-source/Hospital-Data-analytics/pkg/server"

	"github.com/google/wire"
)

// InitializeApp assembles the full service from a loaded configuration.
// The body is a wire template; wire_gen.go carries the real implementation.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient infrastructure
		ProvideLogger,
		ProvideMetrics,

		// Storage backends
		ProvideClickHouseClient,
		ProvideAdmissionStore,

		// Report cache
		ProvideCacheService,
		ProvideReportCache,

		// Analysis engines
		ProvideForecaster,
		ProvideBusyAnalyzer,
		ProvideCapacityAnalyzer,
		ProvideCohortAnalyzer,
		ProvideAdmissionAnalyzer,

		// Kafka intake
		ProvideKafkaConsumer,
		ProvideIntakeBatcher,
		ProvideIntakeHandler,

		// Exports
		ProvideExportWorker,

		// HTTP API
		ProvideAdmissionsHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
