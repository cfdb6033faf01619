package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"learnlytics-backend/domain/analytics"
	"learnlytics-backend/infrastructure/cache"
	"learnlytics-backend/pkg/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubPerformanceRepo serves canned records per user.
type stubPerformanceRepo struct {
	records map[string][]analytics.PerformanceRecord
	err     error
}

func (s *stubPerformanceRepo) FetchRecentPerformance(ctx context.Context, userID string, since time.Time) ([]analytics.PerformanceRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.records[userID], nil
}

func (s *stubPerformanceRepo) FetchTrainingRecords(ctx context.Context, since time.Time, limit int) ([]analytics.PerformanceRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	var all []analytics.PerformanceRecord
	for _, records := range s.records {
		all = append(all, records...)
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// stubGapAnalyzer returns canned gaps, optionally failing for chosen users.
type stubGapAnalyzer struct {
	gaps    map[string][]analytics.LearningGap
	failFor map[string]bool
}

func (s *stubGapAnalyzer) ComputeLearningGaps(ctx context.Context, userID string) ([]analytics.LearningGap, error) {
	if s.failFor[userID] {
		return nil, errors.New("gap model unavailable")
	}
	return s.gaps[userID], nil
}

func (s *stubGapAnalyzer) TrainModel(ctx context.Context, records []analytics.PerformanceRecord) (map[string]float64, error) {
	return map[string]float64{"training_records": float64(len(records))}, nil
}

// stubRecommender returns canned recommendations.
type stubRecommender struct {
	recs map[string][]analytics.Recommendation
	err  error
}

func (s *stubRecommender) ComputeRecommendations(ctx context.Context, userID string) ([]analytics.Recommendation, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.recs[userID], nil
}

func (s *stubRecommender) TrainModel(ctx context.Context, records []analytics.PerformanceRecord) (map[string]float64, error) {
	return map[string]float64{"training_records": float64(len(records))}, nil
}

func newMemoryCacheService() *CacheService {
	return NewCacheService(cache.NewMemoryStore(), observability.NewCacheStats(), nil, zap.NewNop())
}

func submissions(userID string, scores ...float64) []analytics.PerformanceRecord {
	records := make([]analytics.PerformanceRecord, 0, len(scores))
	base := time.Now().UTC().Add(-24 * time.Hour)
	for i, score := range scores {
		records = append(records, analytics.PerformanceRecord{
			UserID:      userID,
			Score:       score,
			MaxScore:    100,
			ConceptTags: []string{"math.algebra"},
			SubmittedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return records
}

func TestPrecomputeUserAnalytics_BundleAssembly(t *testing.T) {
	perf := &stubPerformanceRepo{records: map[string][]analytics.PerformanceRecord{
		"u1": submissions("u1", 40, 60, 80),
	}}

	// Twelve gaps, unsorted, to exercise ranking and truncation.
	var gaps []analytics.LearningGap
	for i := 0; i < 12; i++ {
		gaps = append(gaps, analytics.LearningGap{
			ConceptID: fmt.Sprintf("math.topic%d", i),
			Severity:  float64(i) / 12.0,
		})
	}
	gapAnalyzer := &stubGapAnalyzer{gaps: map[string][]analytics.LearningGap{"u1": gaps}}

	recommender := &stubRecommender{recs: map[string][]analytics.Recommendation{
		"u1": {
			{ResourceID: "r1", ResourceType: "practice_set", PriorityScore: 0.9},
			{ResourceID: "r2", ResourceType: "practice_set", PriorityScore: 0.5},
			{ResourceID: "r3", ResourceType: "video", PriorityScore: 0.95, Completed: true},
			{ResourceID: "r4", ResourceType: "practice_set", PriorityScore: 0.85},
			{ResourceID: "r5", ResourceType: "video", PriorityScore: 0.2},
			{ResourceID: "r6", ResourceType: "video", PriorityScore: 0.3},
			{ResourceID: "r7", ResourceType: "practice_set", PriorityScore: 0.1},
		},
	}}

	cacheService := newMemoryCacheService()
	svc := NewPrecomputeService(perf, gapAnalyzer, recommender, cacheService, zap.NewNop())

	bundle, err := svc.PrecomputeUserAnalytics(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, "u1", bundle.UserID)
	assert.Equal(t, 3, bundle.PerformanceSummary.TotalSubmissions)
	assert.InDelta(t, 60.0, bundle.PerformanceSummary.AverageScore, 0.001)

	// Gaps: ranked by severity descending, top 10 of 12.
	assert.Equal(t, 12, bundle.LearningGaps.TotalGaps)
	require.Len(t, bundle.LearningGaps.Gaps, 10)
	for i := 1; i < len(bundle.LearningGaps.Gaps); i++ {
		assert.GreaterOrEqual(t,
			bundle.LearningGaps.Gaps[i-1].Severity,
			bundle.LearningGaps.Gaps[i].Severity,
		)
	}
	assert.Equal(t, 3, bundle.LearningGaps.HighPriorityGaps, "severity above 0.7: 9/12, 10/12 and 11/12")
	assert.Equal(t, 12, bundle.LearningGaps.Categories["math"])

	// Recommendations: completed excluded, ranked, top 5 of 6 active.
	assert.Equal(t, 7, bundle.Recommendations.TotalRecommendations)
	assert.Equal(t, 6, bundle.Recommendations.ActiveRecommendations)
	require.Len(t, bundle.Recommendations.Recommendations, 5)
	assert.Equal(t, "r1", bundle.Recommendations.Recommendations[0].ResourceID)
	assert.Equal(t, "r4", bundle.Recommendations.Recommendations[1].ResourceID)
	assert.Equal(t, 2, bundle.Recommendations.HighPriorityCount, "scores above 0.8: r1 and r4")

	// The single computation populated every derived cache entry.
	ctx := context.Background()
	_, found := GetTyped[analytics.Bundle](ctx, cacheService, "u1", CachePrecomputed)
	assert.True(t, found)
	_, found = GetTyped[analytics.Bundle](ctx, cacheService, "u1", CacheUserAnalytics)
	assert.True(t, found)
	dash, found := GetTyped[analytics.DashboardData](ctx, cacheService, "u1", CacheDashboard)
	require.True(t, found)
	assert.Equal(t, analytics.SourcePrecomputed, dash.Source)
	_, found = GetTyped[analytics.GapSummary](ctx, cacheService, "u1", CacheLearningGaps)
	assert.True(t, found)
	_, found = GetTyped[analytics.RecommendationSummary](ctx, cacheService, "u1", CacheRecommendations)
	assert.True(t, found)
}

func TestPrecomputeUserAnalytics_NoRecordsSkipsAnalysis(t *testing.T) {
	perf := &stubPerformanceRepo{records: map[string][]analytics.PerformanceRecord{}}
	gapAnalyzer := &stubGapAnalyzer{failFor: map[string]bool{"u1": true}}
	recommender := &stubRecommender{}

	svc := NewPrecomputeService(perf, gapAnalyzer, recommender, newMemoryCacheService(), zap.NewNop())

	bundle, err := svc.PrecomputeUserAnalytics(context.Background(), "u1")
	require.NoError(t, err, "no data is not a failure")
	assert.Zero(t, bundle.LearningGaps.TotalGaps)
	assert.Zero(t, bundle.Recommendations.TotalRecommendations)
	assert.Equal(t, analytics.TrendStable, bundle.ProgressTrend.Direction)
}

func TestPrecomputeUserAnalytics_FetchFailureReturnsEmptyBundle(t *testing.T) {
	perf := &stubPerformanceRepo{err: errors.New("store down")}
	svc := NewPrecomputeService(perf, &stubGapAnalyzer{}, &stubRecommender{}, newMemoryCacheService(), zap.NewNop())

	bundle, err := svc.PrecomputeUserAnalytics(context.Background(), "u1")
	assert.Error(t, err)
	assert.Equal(t, "u1", bundle.UserID)
	assert.Zero(t, bundle.PerformanceSummary.TotalSubmissions)
}

func TestBatchPrecompute_PartialFailure(t *testing.T) {
	perf := &stubPerformanceRepo{records: map[string][]analytics.PerformanceRecord{
		"u1": submissions("u1", 50, 70),
		"u2": submissions("u2", 30, 90),
		"u3": submissions("u3", 80, 85),
	}}
	gapAnalyzer := &stubGapAnalyzer{
		gaps: map[string][]analytics.LearningGap{
			"u1": {{ConceptID: "math.algebra", Severity: 0.5}},
			"u3": {{ConceptID: "math.geometry", Severity: 0.4}},
		},
		failFor: map[string]bool{"u2": true},
	}
	recommender := &stubRecommender{}

	svc := NewPrecomputeService(perf, gapAnalyzer, recommender, newMemoryCacheService(), zap.NewNop())

	result := svc.BatchPrecompute(context.Background(), []string{"u1", "u2", "u3"})

	assert.Equal(t, 3, result.TotalProcessed)
	assert.ElementsMatch(t, []string{"u1", "u3"}, result.Successful)
	require.Contains(t, result.Failed, "u2")
	assert.Contains(t, result.Failed["u2"], "gap model unavailable")
}

func TestBatchPrecompute_Empty(t *testing.T) {
	svc := NewPrecomputeService(&stubPerformanceRepo{}, &stubGapAnalyzer{}, &stubRecommender{}, newMemoryCacheService(), zap.NewNop())

	result := svc.BatchPrecompute(context.Background(), nil)
	assert.Zero(t, result.TotalProcessed)
	assert.Empty(t, result.Successful)
	assert.Empty(t, result.Failed)
}
