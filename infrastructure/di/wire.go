//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"learnlytics-backend/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideCacheStore,
	ProvideAnalyticsRepository,
	ProvidePerformanceRepository,
	ProvideInsightsRepository,
	ProvideUserRepository,
	ProvideGapAnalyzer,
	ProvideRecommendationEngine,
	ProvideQueueManager,
	ProvideWorkerStats,
	ProvideCacheStats,
	ProvideCollector,
	ProvideCacheService,
	ProvidePrecomputeService,
	ProvideDashboardService,
	ProvideHandlerSet,
	ProvideWorkerPool,
	ProvideIntervals,
	ProvideScheduler,
	ProvideJWTValidator,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
