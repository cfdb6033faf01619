package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"learnlytics-backend/application/ports"
	"learnlytics-backend/domain/analytics"

	"go.uber.org/zap"
)

// Precompute tuning.
const (
	// performanceLookback bounds the raw data window a precomputation reads.
	performanceLookback = 30 * 24 * time.Hour

	// maxGaps and maxRecommendations cap the ranked lists kept in a bundle.
	maxGaps            = 10
	maxRecommendations = 5

	// highSeverityThreshold and highPriorityThreshold classify the
	// high-priority counts surfaced on dashboards.
	highSeverityThreshold = 0.7
	highPriorityThreshold = 0.8

	// BundleTTL is how long a precomputed bundle stays cached.
	BundleTTL = 30 * time.Minute

	// Derived sub-cache TTLs.
	analyticsCacheTTL       = 30 * time.Minute
	dashboardCacheTTL       = 5 * time.Minute
	gapsCacheTTL            = 30 * time.Minute
	recommendationsCacheTTL = time.Hour

	// Batch precompute: chunk size and the pause between chunks, so a large
	// batch doesn't overwhelm downstream dependencies.
	batchChunkSize  = 10
	interChunkDelay = time.Second
)

// PrecomputeService assembles the full analytics bundle for a user: recent
// performance, ranked learning gaps, ranked recommendations and the progress
// trend. It is the only writer of precomputed bundles.
type PrecomputeService struct {
	performance     ports.PerformanceRepository
	gapAnalyzer     ports.GapAnalyzer
	recommendations ports.RecommendationEngine
	cache           *CacheService
	logger          *zap.Logger
}

// NewPrecomputeService creates the precompute orchestrator.
func NewPrecomputeService(
	performance ports.PerformanceRepository,
	gapAnalyzer ports.GapAnalyzer,
	recommendations ports.RecommendationEngine,
	cache *CacheService,
	logger *zap.Logger,
) *PrecomputeService {
	return &PrecomputeService{
		performance:     performance,
		gapAnalyzer:     gapAnalyzer,
		recommendations: recommendations,
		cache:           cache,
		logger:          logger,
	}
}

// PrecomputeUserAnalytics computes and caches the analytics bundle for one
// user. Failures in any step are caught and logged and an empty bundle is
// returned, so one bad user never crashes a worker processing a batch. The
// error return reports the underlying cause for callers that care (warming).
func (s *PrecomputeService) PrecomputeUserAnalytics(ctx context.Context, userID string) (analytics.Bundle, error) {
	s.logger.Debug("Starting analytics precomputation", zap.String("userID", userID))

	records, err := s.performance.FetchRecentPerformance(ctx, userID, time.Now().UTC().Add(-performanceLookback))
	if err != nil {
		s.logger.Error("Failed to fetch recent performance",
			zap.String("userID", userID),
			zap.Error(err),
		)
		return analytics.EmptyBundle(userID), err
	}

	bundle := analytics.Bundle{
		UserID:             userID,
		PerformanceSummary: summarizePerformance(records),
		ProgressTrend:      analytics.ComputeProgressTrend(records),
		ComputedAt:         time.Now().UTC(),
		CacheExpiresAt:     time.Now().UTC().Add(BundleTTL),
	}

	var computeErr error
	if len(records) > 0 {
		bundle.LearningGaps, computeErr = s.computeGaps(ctx, userID)
	}

	if len(bundle.LearningGaps.Gaps) > 0 {
		var recErr error
		bundle.Recommendations, recErr = s.computeRecommendations(ctx, userID)
		if computeErr == nil {
			computeErr = recErr
		}
	}

	s.storeBundle(ctx, bundle)

	s.logger.Debug("Completed analytics precomputation",
		zap.String("userID", userID),
		zap.Int("gaps", bundle.LearningGaps.TotalGaps),
		zap.Int("recommendations", bundle.Recommendations.TotalRecommendations),
	)

	return bundle, computeErr
}

// computeGaps invokes the external gap-analysis algorithm and ranks the
// result by severity descending, keeping the top entries. Failures degrade
// to an empty summary; the error is reported so batch processing can count
// the user as failed.
func (s *PrecomputeService) computeGaps(ctx context.Context, userID string) (analytics.GapSummary, error) {
	gaps, err := s.gapAnalyzer.ComputeLearningGaps(ctx, userID)
	if err != nil {
		s.logger.Error("Gap analysis failed",
			zap.String("userID", userID),
			zap.Error(err),
		)
		return analytics.GapSummary{}, err
	}

	sort.Slice(gaps, func(i, j int) bool {
		return gaps[i].Severity > gaps[j].Severity
	})

	highPriority := 0
	for _, gap := range gaps {
		if gap.Severity > highSeverityThreshold {
			highPriority++
		}
	}

	ranked := gaps
	if len(ranked) > maxGaps {
		ranked = ranked[:maxGaps]
	}

	return analytics.GapSummary{
		TotalGaps:        len(gaps),
		HighPriorityGaps: highPriority,
		Gaps:             ranked,
		Categories:       analytics.CategorizeGaps(gaps),
	}, nil
}

// computeRecommendations invokes the external recommendation algorithm,
// filters out completed items and ranks the rest by priority score
// descending, keeping the top entries.
func (s *PrecomputeService) computeRecommendations(ctx context.Context, userID string) (analytics.RecommendationSummary, error) {
	recs, err := s.recommendations.ComputeRecommendations(ctx, userID)
	if err != nil {
		s.logger.Error("Recommendation generation failed",
			zap.String("userID", userID),
			zap.Error(err),
		)
		return analytics.RecommendationSummary{}, err
	}

	active := make([]analytics.Recommendation, 0, len(recs))
	for _, rec := range recs {
		if !rec.Completed {
			active = append(active, rec)
		}
	}

	sort.Slice(active, func(i, j int) bool {
		return active[i].PriorityScore > active[j].PriorityScore
	})

	highPriority := 0
	for _, rec := range active {
		if rec.PriorityScore > highPriorityThreshold {
			highPriority++
		}
	}

	ranked := active
	if len(ranked) > maxRecommendations {
		ranked = ranked[:maxRecommendations]
	}

	return analytics.RecommendationSummary{
		TotalRecommendations:  len(recs),
		ActiveRecommendations: len(active),
		HighPriorityCount:     highPriority,
		Recommendations:       ranked,
		Types:                 analytics.CategorizeRecommendations(active),
	}, nil
}

// storeBundle writes the bundle and fans it out to the derived sub-caches so
// a single computation populates every per-user entry. Cache writes are best
// effort.
func (s *PrecomputeService) storeBundle(ctx context.Context, bundle analytics.Bundle) {
	userID := bundle.UserID

	s.cache.Set(ctx, userID, bundle, BundleTTL, CachePrecomputed)
	s.cache.Set(ctx, userID, bundle, analyticsCacheTTL, CacheUserAnalytics)

	s.cache.Set(ctx, userID, analytics.DashboardData{
		Source:             analytics.SourcePrecomputed,
		ComputedAt:         bundle.ComputedAt,
		PerformanceSummary: bundle.PerformanceSummary,
		LearningGaps:       bundle.LearningGaps,
		Recommendations:    bundle.Recommendations,
		ProgressTrend:      bundle.ProgressTrend,
	}, dashboardCacheTTL, CacheDashboard)

	if len(bundle.LearningGaps.Gaps) > 0 {
		s.cache.Set(ctx, userID, bundle.LearningGaps, gapsCacheTTL, CacheLearningGaps)
	}
	if len(bundle.Recommendations.Recommendations) > 0 {
		s.cache.Set(ctx, userID, bundle.Recommendations, recommendationsCacheTTL, CacheRecommendations)
	}
}

// BatchResult summarizes a batch precomputation.
type BatchResult struct {
	Successful     []string          `json:"successful"`
	Failed         map[string]string `json:"failed"`
	TotalProcessed int               `json:"total_processed"`
}

// BatchPrecompute processes users in fixed-size chunks with a short pause
// between chunks. Users within a chunk are computed concurrently; one
// failure never aborts the batch.
func (s *PrecomputeService) BatchPrecompute(ctx context.Context, userIDs []string) BatchResult {
	result := BatchResult{
		Failed:         make(map[string]string),
		TotalProcessed: len(userIDs),
	}

	var mu sync.Mutex

	for start := 0; start < len(userIDs); start += batchChunkSize {
		end := start + batchChunkSize
		if end > len(userIDs) {
			end = len(userIDs)
		}

		var wg sync.WaitGroup
		for _, userID := range userIDs[start:end] {
			wg.Add(1)
			go func(userID string) {
				defer wg.Done()

				_, err := s.PrecomputeUserAnalytics(ctx, userID)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					result.Failed[userID] = err.Error()
				} else {
					result.Successful = append(result.Successful, userID)
				}
			}(userID)
		}
		wg.Wait()

		if end < len(userIDs) {
			select {
			case <-time.After(interChunkDelay):
			case <-ctx.Done():
				return result
			}
		}
	}

	s.logger.Info("Batch precomputation completed",
		zap.Int("successful", len(result.Successful)),
		zap.Int("failed", len(result.Failed)),
	)

	return result
}

// summarizePerformance aggregates raw records into the bundle summary. The
// five most recent submissions are kept as recent activity.
func summarizePerformance(records []analytics.PerformanceRecord) analytics.PerformanceSummary {
	summary := analytics.PerformanceSummary{
		TotalSubmissions: len(records),
	}
	if len(records) == 0 {
		return summary
	}

	var scoreSum, maxSum float64
	for _, rec := range records {
		scoreSum += rec.Score
		maxSum += rec.MaxScore
	}
	summary.AverageScore = scoreSum / float64(len(records))
	if maxSum > 0 {
		summary.PerformancePercentage = scoreSum / maxSum * 100
	}

	recent := make([]analytics.PerformanceRecord, len(records))
	copy(recent, records)
	sort.Slice(recent, func(i, j int) bool {
		return recent[i].SubmittedAt.After(recent[j].SubmittedAt)
	})
	if len(recent) > 5 {
		recent = recent[:5]
	}
	summary.RecentActivity = recent

	return summary
}
