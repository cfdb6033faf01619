// Package analytics defines the core domain types for precomputed learner
// analytics: performance records, learning gaps, recommendations, progress
// trends and the aggregated bundle served on the dashboard read path.
package analytics

import (
	"strings"
	"time"
)

// Source identifies which tier of the read-path fallback chain produced a
// dashboard payload, so callers can reason about freshness.
type Source string

const (
	SourcePrecomputed Source = "precomputed"
	SourceCached      Source = "cached"
	SourceRealtime    Source = "realtime"
	SourceError       Source = "error"
)

// PerformanceRecord is a single graded submission pulled from the data store.
type PerformanceRecord struct {
	UserID      string    `json:"user_id"`
	Score       float64   `json:"score"`
	MaxScore    float64   `json:"max_score"`
	ConceptTags []string  `json:"concept_tags,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// LearningGap is one detected weakness, produced by the external gap-analysis
// algorithm. Severity is normalized to [0, 1].
type LearningGap struct {
	ConceptID  string    `json:"concept_id"`
	Severity   float64   `json:"severity"`
	DetectedAt time.Time `json:"detected_at"`
}

// Recommendation is one suggested learning resource, produced by the external
// recommendation algorithm. PriorityScore is normalized to [0, 1].
type Recommendation struct {
	ResourceID    string  `json:"resource_id"`
	ResourceType  string  `json:"resource_type"`
	ConceptID     string  `json:"concept_id,omitempty"`
	PriorityScore float64 `json:"priority_score"`
	Completed     bool    `json:"completed"`
}

// PerformanceSummary aggregates a user's recent submissions.
type PerformanceSummary struct {
	TotalSubmissions      int                 `json:"total_submissions"`
	AverageScore          float64             `json:"avg_score"`
	PerformancePercentage float64             `json:"performance_percentage"`
	RecentActivity        []PerformanceRecord `json:"recent_activity"`
}

// GapSummary is the ranked, truncated view of a user's learning gaps.
type GapSummary struct {
	TotalGaps        int            `json:"total_gaps"`
	HighPriorityGaps int            `json:"high_priority_gaps"`
	Gaps             []LearningGap  `json:"gaps"`
	Categories       map[string]int `json:"gap_categories,omitempty"`
}

// RecommendationSummary is the ranked, truncated view of a user's active
// recommendations.
type RecommendationSummary struct {
	TotalRecommendations  int              `json:"total_recommendations"`
	ActiveRecommendations int              `json:"active_recommendations"`
	HighPriorityCount     int              `json:"high_priority_count"`
	Recommendations       []Recommendation `json:"recommendations"`
	Types                 map[string]int   `json:"recommendation_types,omitempty"`
}

// WeeklyProgress is one week's aggregated performance.
type WeeklyProgress struct {
	WeekStart       time.Time `json:"week_start"`
	AverageScore    float64   `json:"avg_score"`
	SubmissionCount int       `json:"submission_count"`
}

// TrendDirection classifies a user's performance trajectory.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendDeclining TrendDirection = "declining"
	TrendStable    TrendDirection = "stable"
)

// ProgressTrend summarizes performance over time: weekly aggregation plus a
// coarse direction and a linear-slope improvement rate.
type ProgressTrend struct {
	Direction       TrendDirection   `json:"trend_direction"`
	WeeklyData      []WeeklyProgress `json:"weekly_data"`
	ImprovementRate float64          `json:"improvement_rate"`
	ActiveWeeks     int              `json:"total_weeks_active"`
	CurrentStreak   int              `json:"current_streak"`
}

// Bundle is the full precomputed analytics result for one user. It is
// produced only by the precompute orchestrator and stored under a single
// cache key per user; the next successful precomputation overwrites it.
type Bundle struct {
	UserID             string                `json:"user_id"`
	PerformanceSummary PerformanceSummary    `json:"performance_summary"`
	LearningGaps       GapSummary            `json:"learning_gaps"`
	Recommendations    RecommendationSummary `json:"recommendations"`
	ProgressTrend      ProgressTrend         `json:"progress_trends"`
	ComputedAt         time.Time             `json:"computed_at"`
	CacheExpiresAt     time.Time             `json:"cache_expires_at"`
}

// EmptyBundle returns a zeroed bundle for a user. Used when precomputation
// fails so batch processing can continue.
func EmptyBundle(userID string) Bundle {
	return Bundle{
		UserID:        userID,
		ComputedAt:    time.Now().UTC(),
		ProgressTrend: ProgressTrend{Direction: TrendStable},
	}
}

// DashboardData is the payload returned on the dashboard read path. Depending
// on the source tier it carries either a full precomputed bundle or the
// reduced realtime shape.
type DashboardData struct {
	Source             Source                `json:"source"`
	ComputedAt         time.Time             `json:"computed_at"`
	PerformanceSummary PerformanceSummary    `json:"performance_summary"`
	LearningGaps       GapSummary            `json:"learning_gaps"`
	Recommendations    RecommendationSummary `json:"recommendations"`
	ProgressTrend      ProgressTrend         `json:"progress_trends"`
}

// DefaultDashboardData returns the zeroed fallback payload used when every
// tier of the read path has failed.
func DefaultDashboardData(source Source) DashboardData {
	return DashboardData{
		Source:        source,
		ComputedAt:    time.Now().UTC(),
		ProgressTrend: ProgressTrend{Direction: TrendStable},
	}
}

// CategorizeGaps counts gaps by top-level concept area. Concept IDs use a
// dotted hierarchy ("math.algebra.linear_equations"); the first segment is
// the category.
func CategorizeGaps(gaps []LearningGap) map[string]int {
	categories := make(map[string]int)
	for _, gap := range gaps {
		category := gap.ConceptID
		if idx := strings.IndexByte(category, '.'); idx >= 0 {
			category = category[:idx]
		}
		if category == "" {
			category = "unknown"
		}
		categories[category]++
	}
	return categories
}

// CategorizeRecommendations counts recommendations by resource type.
func CategorizeRecommendations(recs []Recommendation) map[string]int {
	categories := make(map[string]int)
	for _, rec := range recs {
		resourceType := rec.ResourceType
		if resourceType == "" {
			resourceType = "unknown"
		}
		categories[resourceType]++
	}
	return categories
}
