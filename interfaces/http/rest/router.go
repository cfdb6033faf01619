// Package rest wires the HTTP surface of the analytics backend.
package rest

import (
	"net/http"

	"learnlytics-backend/application/services"
	"learnlytics-backend/application/tasks"
	"learnlytics-backend/interfaces/http/rest/handlers"
	"learnlytics-backend/interfaces/http/rest/middleware"
	"learnlytics-backend/pkg/auth"
	"learnlytics-backend/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Router creates and configures the HTTP router
type Router struct {
	dashboards *services.DashboardService
	cache      *services.CacheService
	queues     *tasks.QueueManager
	workers    handlers.WorkerStatus
	stats      *observability.WorkerStats
	collector  *observability.Collector
	validator  *auth.JWTValidator
	enableCORS bool
	logger     *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	dashboards *services.DashboardService,
	cache *services.CacheService,
	queues *tasks.QueueManager,
	workers handlers.WorkerStatus,
	stats *observability.WorkerStats,
	collector *observability.Collector,
	validator *auth.JWTValidator,
	enableCORS bool,
	logger *zap.Logger,
) *Router {
	return &Router{
		dashboards: dashboards,
		cache:      cache,
		queues:     queues,
		workers:    workers,
		stats:      stats,
		collector:  collector,
		validator:  validator,
		enableCORS: enableCORS,
		logger:     logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	router.Use(middleware.Metrics(rt.collector))

	if rt.enableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "https://*.learnlytics.io"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health and scrape endpoints stay unauthenticated
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	router.Handle("/metrics", promhttp.HandlerFor(rt.collector.Registry(), promhttp.HandlerOpts{}))

	// API v1 routes
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.validator, rt.logger))

		dashboardHandler := handlers.NewDashboardHandler(rt.dashboards, rt.logger)
		r.Get("/dashboard/{userID}", dashboardHandler.GetDashboard)

		taskHandler := handlers.NewTaskHandler(rt.queues, rt.workers, rt.logger)
		r.Route("/tasks", func(r chi.Router) {
			r.Post("/analytics", taskHandler.ScheduleAnalytics)
			r.Post("/ml-training", taskHandler.ScheduleTraining)
		})
		r.Get("/queues/status", taskHandler.QueueStatus)

		cacheHandler := handlers.NewCacheHandler(rt.cache, rt.logger)
		r.Route("/cache", func(r chi.Router) {
			r.Post("/{userID}/warm", cacheHandler.WarmCache)
			r.Delete("/{userID}", cacheHandler.InvalidateCache)
			r.Get("/statistics", cacheHandler.CacheStatistics)
		})

		metricsHandler := handlers.NewMetricsHandler(rt.stats, rt.queues, rt.logger)
		r.Get("/metrics/workers", metricsHandler.WorkerMetrics)
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests. The service degrades
// gracefully without the cache backend, so readiness only gates on the
// process being up.
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
