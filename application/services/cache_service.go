// Package services contains the application services of the analytics
// backend: the layered cache, the precompute orchestrator and the dashboard
// read-path fallback controller.
package services

import (
	"context"
	"encoding/json"
	"time"

	"learnlytics-backend/application/ports"
	"learnlytics-backend/domain/analytics"
	"learnlytics-backend/pkg/observability"

	"go.uber.org/zap"
)

// CacheType partitions the cache key space. Callers never build raw keys;
// they pass an (id, cache type) pair and the service applies a fixed prefix,
// so unrelated data domains cannot collide.
type CacheType string

const (
	CacheUserAnalytics   CacheType = "user_analytics"
	CacheDashboard       CacheType = "dashboard_data"
	CacheLearningGaps    CacheType = "learning_gaps"
	CacheRecommendations CacheType = "recommendations"
	CachePrecomputed     CacheType = "precomputed_analytics"
	CacheModelMetrics    CacheType = "ml_models"
	CacheWorkerMetrics   CacheType = "worker_metrics"
	CacheComputed        CacheType = "computed_results"
)

// cachePrefixes maps every cache type to its key prefix.
var cachePrefixes = map[CacheType]string{
	CacheUserAnalytics:   "analytics:user:",
	CacheDashboard:       "dashboard:",
	CacheLearningGaps:    "gaps:",
	CacheRecommendations: "recommendations:",
	CachePrecomputed:     "precomputed_analytics:",
	CacheModelMetrics:    "models:",
	CacheWorkerMetrics:   "metrics:worker:",
	CacheComputed:        "computed:",
}

// userCacheTypes is the fixed list of per-user cache types cleared by
// InvalidateUser.
var userCacheTypes = []CacheType{
	CacheUserAnalytics,
	CacheDashboard,
	CacheLearningGaps,
	CacheRecommendations,
	CachePrecomputed,
}

// DefaultTTL is applied when a caller passes a non-positive TTL.
const DefaultTTL = time.Hour

// envelopeVersion identifies the current metadata envelope format. Values
// written before the envelope existed are unwrapped via the legacy path.
const envelopeVersion = 1

// envelope wraps every cached value with metadata.
type envelope struct {
	Version    int             `json:"version"`
	Value      json.RawMessage `json:"value"`
	CachedAt   time.Time       `json:"cached_at"`
	TTLSeconds int             `json:"ttl_seconds"`
	CacheType  CacheType       `json:"cache_type"`
}

// Warmer produces a full analytics bundle for one user. Implemented by the
// precompute service; injected after construction to break the cycle between
// the cache service and the orchestrator that writes through it.
type Warmer interface {
	PrecomputeUserAnalytics(ctx context.Context, userID string) (analytics.Bundle, error)
}

// CacheService is the layered cache: namespaced keys, a metadata envelope
// around every value, hit/miss accounting, get-or-compute, warming and
// per-user invalidation. Caching here is a performance optimization only;
// no method lets a backend failure break a read path.
type CacheService struct {
	store     ports.CacheStore
	stats     *observability.CacheStats
	collector *observability.Collector
	warmer    Warmer
	logger    *zap.Logger
}

// NewCacheService creates the layered cache over the given store.
func NewCacheService(
	store ports.CacheStore,
	stats *observability.CacheStats,
	collector *observability.Collector,
	logger *zap.Logger,
) *CacheService {
	return &CacheService{
		store:     store,
		stats:     stats,
		collector: collector,
		logger:    logger,
	}
}

// SetWarmer injects the precompute orchestrator used by Warm.
func (s *CacheService) SetWarmer(w Warmer) {
	s.warmer = w
}

// Key returns the namespaced cache key for an (id, cache type) pair.
func (s *CacheService) Key(id string, cacheType CacheType) string {
	return cachePrefixes[cacheType] + id
}

// Set serializes value inside a metadata envelope and writes it with the
// given TTL. Returns false on backend failure; callers treat that as a
// skipped optimization, not an error.
func (s *CacheService) Set(ctx context.Context, id string, value interface{}, ttl time.Duration, cacheType CacheType) bool {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	key := s.Key(id, cacheType)

	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Error("Failed to serialize cache value",
			zap.String("key", key),
			zap.Error(err),
		)
		return false
	}

	wrapped, err := json.Marshal(envelope{
		Version:    envelopeVersion,
		Value:      raw,
		CachedAt:   time.Now().UTC(),
		TTLSeconds: int(ttl.Seconds()),
		CacheType:  cacheType,
	})
	if err != nil {
		return false
	}

	if err := s.store.Set(ctx, key, wrapped, ttl); err != nil {
		s.logger.Warn("Cache set failed",
			zap.String("key", key),
			zap.Error(err),
		)
		return false
	}

	s.stats.Set()
	return true
}

// Get reads and unwraps a cached value. A backend failure is logged and
// treated identically to a miss. Values written before the envelope existed
// are returned as-is.
func (s *CacheService) Get(ctx context.Context, id string, cacheType CacheType) (json.RawMessage, bool) {
	key := s.Key(id, cacheType)

	data, found, err := s.store.Get(ctx, key)
	if err != nil {
		s.logger.Warn("Cache get failed, treating as miss",
			zap.String("key", key),
			zap.Error(err),
		)
		s.miss()
		return nil, false
	}
	if !found {
		s.miss()
		return nil, false
	}

	s.hit()

	var env envelope
	if err := json.Unmarshal(data, &env); err == nil && env.Version > 0 && env.Value != nil {
		return env.Value, true
	}

	// Legacy value written without the envelope.
	return json.RawMessage(data), true
}

// Delete removes a cached value. Returns false on backend failure.
func (s *CacheService) Delete(ctx context.Context, id string, cacheType CacheType) bool {
	key := s.Key(id, cacheType)

	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Warn("Cache delete failed",
			zap.String("key", key),
			zap.Error(err),
		)
		return false
	}

	s.stats.Delete()
	return true
}

// InvalidateUser removes every per-user cache entry across the fixed list of
// user cache types. Used on profile mutation and account deletion. Returns
// false if any delete failed.
func (s *CacheService) InvalidateUser(ctx context.Context, userID string) bool {
	ok := true
	for _, cacheType := range userCacheTypes {
		if !s.Delete(ctx, userID, cacheType) {
			ok = false
		}
	}

	if ok {
		s.logger.Info("Invalidated user cache", zap.String("userID", userID))
	} else {
		s.logger.Warn("Partial user cache invalidation", zap.String("userID", userID))
	}
	return ok
}

// Warm triggers a synchronous precomputation for one user. The orchestrator
// writes the bundle and all derived sub-caches itself, so a single
// computation populates every per-user entry.
func (s *CacheService) Warm(ctx context.Context, userID string) bool {
	if s.warmer == nil {
		s.logger.Error("Cache warmer not configured")
		return false
	}

	bundle, err := s.warmer.PrecomputeUserAnalytics(ctx, userID)
	if err != nil {
		s.logger.Error("Cache warming failed",
			zap.String("userID", userID),
			zap.Error(err),
		)
		return false
	}

	s.logger.Info("Cache warmed",
		zap.String("userID", userID),
		zap.Time("computedAt", bundle.ComputedAt),
	)
	return true
}

// Stats returns the current cache counters.
func (s *CacheService) Stats() observability.CacheSnapshot {
	return s.stats.Snapshot()
}

// CacheTypes returns the known cache type names, for the statistics endpoint.
func (s *CacheService) CacheTypes() []string {
	types := make([]string, 0, len(cachePrefixes))
	for cacheType := range cachePrefixes {
		types = append(types, string(cacheType))
	}
	return types
}

func (s *CacheService) hit() {
	s.stats.Hit()
	if s.collector != nil {
		s.collector.CacheHits.Inc()
	}
}

func (s *CacheService) miss() {
	s.stats.Miss()
	if s.collector != nil {
		s.collector.CacheMisses.Inc()
	}
}

// GetTyped reads a cached value and decodes it into T. Decode failures count
// as misses: a corrupt entry must never break a read path.
func GetTyped[T any](ctx context.Context, s *CacheService, id string, cacheType CacheType) (T, bool) {
	var zero T

	raw, found := s.Get(ctx, id, cacheType)
	if !found {
		return zero, false
	}

	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		s.logger.Warn("Failed to decode cached value",
			zap.String("key", s.Key(id, cacheType)),
			zap.Error(err),
		)
		return zero, false
	}
	return value, true
}

// GetOrCompute returns the cached value for id, or invokes compute on a miss,
// stores the result and returns it. If the cache backend is unreachable the
// computed value is still returned: caching is never a correctness
// dependency.
func GetOrCompute[T any](
	ctx context.Context,
	s *CacheService,
	id string,
	ttl time.Duration,
	cacheType CacheType,
	compute func(ctx context.Context) (T, error),
) (T, error) {
	if cached, found := GetTyped[T](ctx, s, id, cacheType); found {
		return cached, nil
	}

	value, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	// Best effort: a failed set only means the next read recomputes.
	s.Set(ctx, id, value, ttl, cacheType)

	return value, nil
}
