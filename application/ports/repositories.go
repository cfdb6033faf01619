package ports

import (
	"context"
	"time"

	"learnlytics-backend/domain/analytics"
)

// PerformanceRepository defines the read interface the analytics core needs
// from the data store. This is a port in hexagonal architecture - the core
// doesn't know about the implementation.
type PerformanceRepository interface {
	// FetchRecentPerformance returns a user's submissions since the given time.
	FetchRecentPerformance(ctx context.Context, userID string, since time.Time) ([]analytics.PerformanceRecord, error)

	// FetchTrainingRecords returns a bounded sample of recent submissions
	// across all users, used as model training input.
	FetchTrainingRecords(ctx context.Context, since time.Time, limit int) ([]analytics.PerformanceRecord, error)
}

// InsightsRepository exposes the narrow reads the realtime dashboard path
// makes directly against the data store: current stored gaps and active
// stored recommendations, pre-filtered and truncated server-side.
type InsightsRepository interface {
	// CurrentGaps returns stored gaps with severity at or above minSeverity,
	// ordered by severity descending, capped at limit.
	CurrentGaps(ctx context.Context, userID string, minSeverity float64, limit int) ([]analytics.LearningGap, error)

	// ActiveRecommendations returns stored, not-completed recommendations
	// ordered by priority score descending, capped at limit.
	ActiveRecommendations(ctx context.Context, userID string, limit int) ([]analytics.Recommendation, error)
}

// UserRepository exposes the user queries the schedulers need.
type UserRepository interface {
	// ActiveUsersSince returns the IDs of users whose last login is at or
	// after the cutoff, capped at limit.
	ActiveUsersSince(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
}

// GapAnalyzer is the external gap-detection algorithm. The core only invokes
// it; ranking and truncation happen in the precompute orchestrator.
type GapAnalyzer interface {
	ComputeLearningGaps(ctx context.Context, userID string) ([]analytics.LearningGap, error)

	// TrainModel retrains the gap-detection model on the given records and
	// returns opaque model metrics for observability.
	TrainModel(ctx context.Context, records []analytics.PerformanceRecord) (map[string]float64, error)
}

// RecommendationEngine is the external recommendation algorithm.
type RecommendationEngine interface {
	ComputeRecommendations(ctx context.Context, userID string) ([]analytics.Recommendation, error)

	// TrainModel retrains the recommendation model on the given records and
	// returns opaque model metrics for observability.
	TrainModel(ctx context.Context, records []analytics.PerformanceRecord) (map[string]float64, error)
}

// CacheStore is the raw key/value store with expiration backing the layered
// cache service. Implementations must be safe for concurrent use.
type CacheStore interface {
	// Get returns the stored bytes and whether the key was present. A missing
	// key is (nil, false, nil), not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
