package handlers

import (
	"net/http"

	"learnlytics-backend/application/tasks"
	"learnlytics-backend/pkg/observability"

	"go.uber.org/zap"
)

// MetricsHandler reports worker throughput and queue depths as JSON. The
// Prometheus scrape endpoint is wired separately on the router.
type MetricsHandler struct {
	stats  *observability.WorkerStats
	queues *tasks.QueueManager
	logger *zap.Logger
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(stats *observability.WorkerStats, queues *tasks.QueueManager, logger *zap.Logger) *MetricsHandler {
	return &MetricsHandler{
		stats:  stats,
		queues: queues,
		logger: logger,
	}
}

// WorkerMetrics handles GET /metrics/workers.
func (h *MetricsHandler) WorkerMetrics(w http.ResponseWriter, r *http.Request) {
	snap := h.stats.Snapshot()
	snap.QueueSizes = h.queues.Depths()
	respondJSON(w, h.logger, http.StatusOK, snap)
}
