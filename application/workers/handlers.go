package workers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"learnlytics-backend/application/ports"
	"learnlytics-backend/application/services"
	"learnlytics-backend/application/tasks"
	"learnlytics-backend/domain/analytics"

	"go.uber.org/zap"
)

const (
	// trainingLookback and trainingRecordLimit bound how much data one
	// retraining run pulls from the store.
	trainingLookback    = 30 * 24 * time.Hour
	trainingRecordLimit = 1000

	// modelMetricsTTL keeps the latest training metrics visible for a day.
	modelMetricsTTL = 24 * time.Hour

	// dashboardRefreshWindow selects users active recently enough to expect
	// a warm dashboard on their next visit.
	dashboardRefreshWindow = 6 * time.Hour
	dashboardRefreshLimit  = 50

	refreshWindow = 24 * time.Hour
	refreshLimit  = 50
)

// HandlerSet bundles the task handlers with their dependencies and exposes
// the dispatch table the worker pool runs on.
type HandlerSet struct {
	precompute      *services.PrecomputeService
	cache           *services.CacheService
	performance     ports.PerformanceRepository
	gapAnalyzer     ports.GapAnalyzer
	recommendations ports.RecommendationEngine
	users           ports.UserRepository
	queues          *tasks.QueueManager
	logger          *zap.Logger
}

// NewHandlerSet wires the handlers.
func NewHandlerSet(
	precompute *services.PrecomputeService,
	cache *services.CacheService,
	performance ports.PerformanceRepository,
	gapAnalyzer ports.GapAnalyzer,
	recommendations ports.RecommendationEngine,
	users ports.UserRepository,
	queues *tasks.QueueManager,
	logger *zap.Logger,
) *HandlerSet {
	return &HandlerSet{
		precompute:      precompute,
		cache:           cache,
		performance:     performance,
		gapAnalyzer:     gapAnalyzer,
		recommendations: recommendations,
		users:           users,
		queues:          queues,
		logger:          logger,
	}
}

// Handlers returns the closed dispatch table. Task types not listed here are
// dropped by the pool.
func (h *HandlerSet) Handlers() map[tasks.Type]Handler {
	return map[tasks.Type]Handler{
		tasks.TypeGapDetectionTraining:    h.TrainGapModel,
		tasks.TypeRecommendationTraining:  h.TrainRecommendationModel,
		tasks.TypeUserAnalyticsPrecompute: h.PrecomputeUser,
		tasks.TypeBatchAnalyticsUpdate:    h.BatchUpdate,
		tasks.TypeRefreshDashboard:        h.RefreshDashboards,
		tasks.TypeRefreshUserAnalytics:    h.RefreshUserAnalytics,
		tasks.TypeRefreshRecommendations:  h.RefreshRecommendations,
	}
}

// TrainGapModel retrains the gap-detection model on recent submissions and
// caches the returned metrics for the monitoring surface.
func (h *HandlerSet) TrainGapModel(ctx context.Context, task tasks.Task) error {
	return h.trainModel(ctx, "gap_detection", h.gapAnalyzer.TrainModel)
}

// TrainRecommendationModel retrains the recommendation model.
func (h *HandlerSet) TrainRecommendationModel(ctx context.Context, task tasks.Task) error {
	return h.trainModel(ctx, "recommendation", h.recommendations.TrainModel)
}

func (h *HandlerSet) trainModel(
	ctx context.Context,
	modelName string,
	train func(ctx context.Context, records []analytics.PerformanceRecord) (map[string]float64, error),
) error {
	since := time.Now().UTC().Add(-trainingLookback)
	records, err := h.performance.FetchTrainingRecords(ctx, since, trainingRecordLimit)
	if err != nil {
		return fmt.Errorf("fetch training data for %s: %w", modelName, err)
	}

	metrics, err := train(ctx, records)
	if err != nil {
		return fmt.Errorf("train %s model: %w", modelName, err)
	}

	h.cache.Set(ctx, modelName, metrics, modelMetricsTTL, services.CacheModelMetrics)
	h.logger.Info("Model retrained",
		zap.String("model", modelName),
		zap.Int("trainingRecords", len(records)),
	)
	return nil
}

// PrecomputeUser runs a full analytics precomputation for the task's user.
func (h *HandlerSet) PrecomputeUser(ctx context.Context, task tasks.Task) error {
	userID := task.UserID()
	if userID == "" {
		return fmt.Errorf("task %s has no user_id", task.ID)
	}

	if _, err := h.precompute.PrecomputeUserAnalytics(ctx, userID); err != nil {
		return fmt.Errorf("precompute analytics for %s: %w", userID, err)
	}
	return nil
}

// BatchUpdate precomputes analytics for every user named in the payload.
// Per-user failures are accounted inside the batch; the task itself only
// fails when it carries no users.
func (h *HandlerSet) BatchUpdate(ctx context.Context, task tasks.Task) error {
	userIDs := splitUserIDs(task.Payload["user_ids"])
	if len(userIDs) == 0 {
		return fmt.Errorf("task %s has no user_ids", task.ID)
	}

	result := h.precompute.BatchPrecompute(ctx, userIDs)
	h.logger.Info("Batch analytics update finished",
		zap.String("taskID", task.ID),
		zap.Int("total", result.TotalProcessed),
		zap.Int("successful", len(result.Successful)),
		zap.Int("failed", len(result.Failed)),
	)
	return nil
}

// RefreshDashboards re-enqueues precompute work for recently active users
// whose dashboard cache entry has expired, so their next visit hits the fast
// path.
func (h *HandlerSet) RefreshDashboards(ctx context.Context, task tasks.Task) error {
	cutoff := time.Now().UTC().Add(-dashboardRefreshWindow)
	userIDs, err := h.users.ActiveUsersSince(ctx, cutoff, dashboardRefreshLimit)
	if err != nil {
		return fmt.Errorf("list active users: %w", err)
	}

	enqueued := 0
	for _, userID := range userIDs {
		if _, ok := h.cache.Get(ctx, userID, services.CacheDashboard); ok {
			continue
		}
		refresh := tasks.New(tasks.TypeUserAnalyticsPrecompute, "cache_refresh", map[string]string{
			"user_id": userID,
		}).WithPriority(tasks.PriorityLow)
		if h.queues.Enqueue(tasks.QueueAnalytics, refresh) {
			enqueued++
		}
	}

	h.logger.Info("Dashboard refresh scheduled",
		zap.Int("activeUsers", len(userIDs)),
		zap.Int("enqueued", enqueued),
	)
	return nil
}

// RefreshUserAnalytics recomputes the full bundle for recently active users.
func (h *HandlerSet) RefreshUserAnalytics(ctx context.Context, task tasks.Task) error {
	cutoff := time.Now().UTC().Add(-refreshWindow)
	userIDs, err := h.users.ActiveUsersSince(ctx, cutoff, refreshLimit)
	if err != nil {
		return fmt.Errorf("list active users: %w", err)
	}
	if len(userIDs) == 0 {
		return nil
	}

	result := h.precompute.BatchPrecompute(ctx, userIDs)
	h.logger.Info("User analytics refreshed",
		zap.Int("successful", len(result.Successful)),
		zap.Int("failed", len(result.Failed)),
	)
	return nil
}

// RefreshRecommendations drops the cached recommendation summaries for
// recently active users so the next read recomputes them against fresh model
// output.
func (h *HandlerSet) RefreshRecommendations(ctx context.Context, task tasks.Task) error {
	cutoff := time.Now().UTC().Add(-refreshWindow)
	userIDs, err := h.users.ActiveUsersSince(ctx, cutoff, refreshLimit)
	if err != nil {
		return fmt.Errorf("list active users: %w", err)
	}

	invalidated := 0
	for _, userID := range userIDs {
		if h.cache.Delete(ctx, userID, services.CacheRecommendations) {
			invalidated++
		}
	}

	h.logger.Info("Recommendation caches invalidated",
		zap.Int("activeUsers", len(userIDs)),
		zap.Int("invalidated", invalidated),
	)
	return nil
}

func splitUserIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	userIDs := make([]string, 0, len(parts))
	for _, part := range parts {
		if id := strings.TrimSpace(part); id != "" {
			userIDs = append(userIDs, id)
		}
	}
	return userIDs
}
