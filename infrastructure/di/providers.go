package di

import (
	"context"

	"learnlytics-backend/application/ports"
	"learnlytics-backend/application/services"
	"learnlytics-backend/application/tasks"
	"learnlytics-backend/application/workers"
	"learnlytics-backend/infrastructure/cache"
	"learnlytics-backend/infrastructure/config"
	"learnlytics-backend/infrastructure/ml"
	"learnlytics-backend/infrastructure/persistence/dynamodb"
	"learnlytics-backend/interfaces/http/rest"
	"learnlytics-backend/pkg/auth"
	"learnlytics-backend/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Environment == "production" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client, honoring the local
// endpoint override used in development.
func ProvideDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})
}

// ProvideCacheStore creates the Redis-backed cache store.
func ProvideCacheStore(cfg *config.Config, logger *zap.Logger) ports.CacheStore {
	return cache.NewRedisStore(cache.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Timeout:  cfg.RedisTimeout,
	}, logger)
}

// ProvideAnalyticsRepository creates the DynamoDB-backed repository.
func ProvideAnalyticsRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) *dynamodb.AnalyticsRepository {
	return dynamodb.NewAnalyticsRepository(client, cfg.DynamoDBTable, cfg.ActivityIndexName, logger)
}

// ProvidePerformanceRepository exposes the repository through its read port.
func ProvidePerformanceRepository(repo *dynamodb.AnalyticsRepository) ports.PerformanceRepository {
	return repo
}

// ProvideInsightsRepository exposes the repository's gap and recommendation
// reads.
func ProvideInsightsRepository(repo *dynamodb.AnalyticsRepository) ports.InsightsRepository {
	return repo
}

// ProvideUserRepository exposes the repository's user queries.
func ProvideUserRepository(repo *dynamodb.AnalyticsRepository) ports.UserRepository {
	return repo
}

// ProvideGapAnalyzer creates the gap-detection engine.
func ProvideGapAnalyzer(performance ports.PerformanceRepository, logger *zap.Logger) ports.GapAnalyzer {
	return ml.NewGapEngine(performance, logger)
}

// ProvideRecommendationEngine creates the recommendation engine.
func ProvideRecommendationEngine(gaps ports.GapAnalyzer, logger *zap.Logger) ports.RecommendationEngine {
	return ml.NewRecommendationEngine(gaps, logger)
}

// ProvideQueueManager creates the task queues with configured capacities.
func ProvideQueueManager(cfg *config.Config, logger *zap.Logger) *tasks.QueueManager {
	return tasks.NewQueueManager(tasks.Capacities{
		MLTraining:   cfg.MLTrainingQueueSize,
		Analytics:    cfg.AnalyticsQueueSize,
		CacheRefresh: cfg.CacheRefreshQueueSize,
	}, logger)
}

// ProvideWorkerStats creates the shared worker counters.
func ProvideWorkerStats() *observability.WorkerStats {
	return observability.NewWorkerStats()
}

// ProvideCacheStats creates the shared cache counters.
func ProvideCacheStats() *observability.CacheStats {
	return observability.NewCacheStats()
}

// ProvideCollector creates the Prometheus metrics collector.
func ProvideCollector() *observability.Collector {
	return observability.NewCollector("learnlytics")
}

// ProvideCacheService creates the layered cache.
func ProvideCacheService(
	store ports.CacheStore,
	stats *observability.CacheStats,
	collector *observability.Collector,
	logger *zap.Logger,
) *services.CacheService {
	return services.NewCacheService(store, stats, collector, logger)
}

// ProvidePrecomputeService creates the precompute orchestrator and registers
// it as the cache warmer. The setter breaks the construction cycle between
// the two services.
func ProvidePrecomputeService(
	performance ports.PerformanceRepository,
	gapAnalyzer ports.GapAnalyzer,
	recommendations ports.RecommendationEngine,
	cacheService *services.CacheService,
	logger *zap.Logger,
) *services.PrecomputeService {
	svc := services.NewPrecomputeService(performance, gapAnalyzer, recommendations, cacheService, logger)
	cacheService.SetWarmer(svc)
	return svc
}

// ProvideDashboardService creates the read-path controller.
func ProvideDashboardService(
	cacheService *services.CacheService,
	performance ports.PerformanceRepository,
	insights ports.InsightsRepository,
	queues *tasks.QueueManager,
	logger *zap.Logger,
) *services.DashboardService {
	return services.NewDashboardService(cacheService, performance, insights, queues, logger)
}

// ProvideHandlerSet creates the task handlers.
func ProvideHandlerSet(
	precompute *services.PrecomputeService,
	cacheService *services.CacheService,
	performance ports.PerformanceRepository,
	gapAnalyzer ports.GapAnalyzer,
	recommendations ports.RecommendationEngine,
	users ports.UserRepository,
	queues *tasks.QueueManager,
	logger *zap.Logger,
) *workers.HandlerSet {
	return workers.NewHandlerSet(precompute, cacheService, performance, gapAnalyzer, recommendations, users, queues, logger)
}

// ProvideWorkerPool creates the queue consumers over the handler table.
func ProvideWorkerPool(
	queues *tasks.QueueManager,
	handlers *workers.HandlerSet,
	stats *observability.WorkerStats,
	collector *observability.Collector,
	logger *zap.Logger,
) *workers.WorkerPool {
	return workers.NewWorkerPool(queues, handlers.Handlers(), stats, collector, logger)
}

// ProvideIntervals maps the configured schedule onto the scheduler.
func ProvideIntervals(cfg *config.Config) workers.Intervals {
	return workers.Intervals{
		ModelTraining:  cfg.ModelTrainingInterval,
		AnalyticsBatch: cfg.AnalyticsBatchInterval,
		CacheRefresh:   cfg.CacheRefreshInterval,
		Monitoring:     cfg.MonitoringInterval,
	}
}

// ProvideScheduler creates the periodic task producers.
func ProvideScheduler(
	queues *tasks.QueueManager,
	users ports.UserRepository,
	cacheService *services.CacheService,
	stats *observability.WorkerStats,
	collector *observability.Collector,
	intervals workers.Intervals,
	logger *zap.Logger,
) *workers.Scheduler {
	return workers.NewScheduler(queues, users, cacheService, stats, collector, intervals, logger)
}

// ProvideJWTValidator creates the token validator for the HTTP middleware.
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	secret := cfg.JWTSecret
	if secret == "" && !cfg.IsProduction() {
		secret = "development-secret-change-in-production"
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SigningMethod: "HS256",
		SecretKey:     secret,
		Issuer:        cfg.JWTIssuer,
	})
}

// ProvideRouter creates the HTTP router.
func ProvideRouter(
	cfg *config.Config,
	dashboards *services.DashboardService,
	cacheService *services.CacheService,
	queues *tasks.QueueManager,
	pool *workers.WorkerPool,
	stats *observability.WorkerStats,
	collector *observability.Collector,
	validator *auth.JWTValidator,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(dashboards, cacheService, queues, pool, stats, collector, validator, cfg.EnableCORS, logger)
}
