package services

import (
	"context"
	"time"

	"learnlytics-backend/application/ports"
	"learnlytics-backend/application/tasks"
	"learnlytics-backend/domain/analytics"

	"go.uber.org/zap"
)

const (
	// realtimeWindow bounds the realtime aggregation to recent activity so
	// the fallback query stays cheap.
	realtimeWindow = 7 * 24 * time.Hour

	// realtimeCacheTTL is deliberately short: the realtime payload is a
	// stopgap until the background precompute lands.
	realtimeCacheTTL = 5 * time.Minute

	// precomputeDelay spaces the background precompute away from the request
	// burst that triggered it.
	precomputeDelay = 30 * time.Second

	realtimeGapLimit            = 5
	realtimeRecommendationLimit = 3
)

// DashboardService serves the dashboard read path. Each tier of the fallback
// chain is strictly cheaper than the one before it; the service never returns
// an error to its caller, only progressively staler or emptier data.
type DashboardService struct {
	cache       *CacheService
	performance ports.PerformanceRepository
	insights    ports.InsightsRepository
	queues      *tasks.QueueManager
	logger      *zap.Logger

	// delay before the fire-and-forget precompute is enqueued. Non-positive
	// means enqueue inline, which tests rely on.
	precomputeDelay time.Duration
}

// NewDashboardService creates the read-path controller.
func NewDashboardService(
	cache *CacheService,
	performance ports.PerformanceRepository,
	insights ports.InsightsRepository,
	queues *tasks.QueueManager,
	logger *zap.Logger,
) *DashboardService {
	return &DashboardService{
		cache:           cache,
		performance:     performance,
		insights:        insights,
		queues:          queues,
		logger:          logger,
		precomputeDelay: precomputeDelay,
	}
}

// GetDashboardData resolves dashboard data through the fallback chain:
// precomputed bundle, short-lived dashboard cache, realtime aggregation.
// A realtime result is cached briefly and a full precompute is scheduled in
// the background so the next request is served from the first tier. When
// every tier fails the zeroed default payload is returned, tagged with the
// error source.
func (s *DashboardService) GetDashboardData(ctx context.Context, userID string) analytics.DashboardData {
	if bundle, ok := GetTyped[analytics.Bundle](ctx, s.cache, userID, CachePrecomputed); ok {
		return dashboardFromBundle(bundle)
	}

	if data, ok := GetTyped[analytics.DashboardData](ctx, s.cache, userID, CacheDashboard); ok {
		data.Source = analytics.SourceCached
		return data
	}

	data, err := s.realtimeDashboard(ctx, userID)
	if err != nil {
		s.logger.Error("Dashboard read path exhausted",
			zap.String("userID", userID),
			zap.Error(err),
		)
		return analytics.DefaultDashboardData(analytics.SourceError)
	}

	s.cache.Set(ctx, userID, data, realtimeCacheTTL, CacheDashboard)
	s.schedulePrecompute(userID)

	return data
}

// realtimeDashboard builds the reduced dashboard shape directly from the data
// store: a 7-day performance summary plus the top stored gaps and
// recommendations. No trend analysis and no external compute calls.
func (s *DashboardService) realtimeDashboard(ctx context.Context, userID string) (analytics.DashboardData, error) {
	since := time.Now().UTC().Add(-realtimeWindow)
	records, err := s.performance.FetchRecentPerformance(ctx, userID, since)
	if err != nil {
		return analytics.DashboardData{}, err
	}

	data := analytics.DashboardData{
		Source:             analytics.SourceRealtime,
		ComputedAt:         time.Now().UTC(),
		PerformanceSummary: summarizePerformance(records),
		ProgressTrend:      analytics.ProgressTrend{Direction: analytics.TrendStable},
	}

	gaps, err := s.insights.CurrentGaps(ctx, userID, highSeverityThreshold, realtimeGapLimit)
	if err != nil {
		s.logger.Warn("Realtime gap lookup failed",
			zap.String("userID", userID),
			zap.Error(err),
		)
	} else {
		data.LearningGaps = analytics.GapSummary{
			TotalGaps:        len(gaps),
			HighPriorityGaps: len(gaps),
			Gaps:             gaps,
		}
	}

	recs, err := s.insights.ActiveRecommendations(ctx, userID, realtimeRecommendationLimit)
	if err != nil {
		s.logger.Warn("Realtime recommendation lookup failed",
			zap.String("userID", userID),
			zap.Error(err),
		)
	} else {
		data.Recommendations = analytics.RecommendationSummary{
			TotalRecommendations:  len(recs),
			ActiveRecommendations: len(recs),
			Recommendations:       recs,
		}
	}

	return data, nil
}

// schedulePrecompute enqueues a full precompute for the user without blocking
// the request. The enqueue itself is non-blocking; if the analytics queue is
// full the task is dropped and the next cache miss retries.
func (s *DashboardService) schedulePrecompute(userID string) {
	task := tasks.New(tasks.TypeUserAnalyticsPrecompute, "dashboard_fallback", map[string]string{
		"user_id": userID,
	}).WithPriority(tasks.PriorityHigh)

	enqueue := func() {
		if !s.queues.Enqueue(tasks.QueueAnalytics, task) {
			s.logger.Warn("Dropped background precompute, queue full",
				zap.String("userID", userID),
			)
		}
	}

	if s.precomputeDelay <= 0 {
		enqueue()
		return
	}
	time.AfterFunc(s.precomputeDelay, enqueue)
}

func dashboardFromBundle(bundle analytics.Bundle) analytics.DashboardData {
	return analytics.DashboardData{
		Source:             analytics.SourcePrecomputed,
		ComputedAt:         bundle.ComputedAt,
		PerformanceSummary: bundle.PerformanceSummary,
		LearningGaps:       bundle.LearningGaps,
		Recommendations:    bundle.Recommendations,
		ProgressTrend:      bundle.ProgressTrend,
	}
}
