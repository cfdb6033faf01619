package di

import (
	"learnlytics-backend/application/ports"
	"learnlytics-backend/application/services"
	"learnlytics-backend/application/tasks"
	"learnlytics-backend/application/workers"
	"learnlytics-backend/infrastructure/config"
	"learnlytics-backend/interfaces/http/rest"
	"learnlytics-backend/pkg/auth"
	"learnlytics-backend/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config            *config.Config
	Logger            *zap.Logger
	CacheStore        ports.CacheStore
	QueueManager      *tasks.QueueManager
	WorkerStats       *observability.WorkerStats
	CacheStats        *observability.CacheStats
	Collector         *observability.Collector
	CacheService      *services.CacheService
	PrecomputeService *services.PrecomputeService
	DashboardService  *services.DashboardService
	WorkerPool        *workers.WorkerPool
	Scheduler         *workers.Scheduler
	JWTValidator      *auth.JWTValidator
	Router            *rest.Router
}
