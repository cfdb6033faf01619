// Package observability provides the worker and cache metrics for the
// analytics backend: an injectable snapshot counter set consumed by the
// monitoring loop, mirrored into Prometheus for scraping.
package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WorkerStats is an injectable, concurrency-safe counter set tracking
// background task processing. It is passed by reference to every worker and
// scheduler; a fresh instance per test keeps tests isolated.
type WorkerStats struct {
	mu sync.Mutex

	tasksProcessed int64
	tasksFailed    int64
	totalDuration  time.Duration
	lastUpdated    time.Time
}

// NewWorkerStats creates an empty counter set.
func NewWorkerStats() *WorkerStats {
	return &WorkerStats{lastUpdated: time.Now().UTC()}
}

// RecordSuccess counts one processed task and folds its duration into the
// running average.
func (s *WorkerStats) RecordSuccess(duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasksProcessed++
	s.totalDuration += duration
	s.lastUpdated = time.Now().UTC()
}

// RecordFailure counts one failed task.
func (s *WorkerStats) RecordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasksFailed++
	s.lastUpdated = time.Now().UTC()
}

// WorkerSnapshot is a point-in-time copy of the worker counters.
type WorkerSnapshot struct {
	TasksProcessed        int64          `json:"tasks_processed"`
	TasksFailed           int64          `json:"tasks_failed"`
	AverageProcessingTime float64        `json:"average_processing_time"`
	QueueSizes            map[string]int `json:"queue_sizes,omitempty"`
	LastUpdated           time.Time      `json:"last_updated"`
}

// Snapshot returns a copy of the current counters. Queue sizes are filled in
// by the caller, which owns the queue manager.
func (s *WorkerStats) Snapshot() WorkerSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := WorkerSnapshot{
		TasksProcessed: s.tasksProcessed,
		TasksFailed:    s.tasksFailed,
		LastUpdated:    s.lastUpdated,
	}
	if s.tasksProcessed > 0 {
		snap.AverageProcessingTime = s.totalDuration.Seconds() / float64(s.tasksProcessed)
	}
	return snap
}

// SnapshotAndReset returns the current counters and zeroes them.
func (s *WorkerStats) SnapshotAndReset() WorkerSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := WorkerSnapshot{
		TasksProcessed: s.tasksProcessed,
		TasksFailed:    s.tasksFailed,
		LastUpdated:    s.lastUpdated,
	}
	if s.tasksProcessed > 0 {
		snap.AverageProcessingTime = s.totalDuration.Seconds() / float64(s.tasksProcessed)
	}

	s.tasksProcessed = 0
	s.tasksFailed = 0
	s.totalDuration = 0
	s.lastUpdated = time.Now().UTC()

	return snap
}

// CacheStats counts layered-cache operations.
type CacheStats struct {
	mu      sync.Mutex
	hits    int64
	misses  int64
	sets    int64
	deletes int64
}

// NewCacheStats creates an empty cache counter set.
func NewCacheStats() *CacheStats {
	return &CacheStats{}
}

func (s *CacheStats) Hit()    { s.mu.Lock(); s.hits++; s.mu.Unlock() }
func (s *CacheStats) Miss()   { s.mu.Lock(); s.misses++; s.mu.Unlock() }
func (s *CacheStats) Set()    { s.mu.Lock(); s.sets++; s.mu.Unlock() }
func (s *CacheStats) Delete() { s.mu.Lock(); s.deletes++; s.mu.Unlock() }

// CacheSnapshot is a point-in-time copy of the cache counters.
type CacheSnapshot struct {
	Hits              int64   `json:"hits"`
	Misses            int64   `json:"misses"`
	Sets              int64   `json:"sets"`
	Deletes           int64   `json:"deletes"`
	HitRatePercentage float64 `json:"hit_rate_percentage"`
}

// Snapshot returns a copy of the current cache counters with the derived hit
// rate.
func (s *CacheStats) Snapshot() CacheSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := CacheSnapshot{
		Hits:    s.hits,
		Misses:  s.misses,
		Sets:    s.sets,
		Deletes: s.deletes,
	}
	if total := s.hits + s.misses; total > 0 {
		snap.HitRatePercentage = float64(s.hits) / float64(total) * 100
	}
	return snap
}

// Collector holds the Prometheus metrics mirrored from the worker and cache
// counters, plus HTTP request metrics.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	TasksProcessed *prometheus.CounterVec
	TasksFailed    *prometheus.CounterVec
	TaskDuration   *prometheus.HistogramVec
	QueueDepth     *prometheus.GaugeVec

	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

// NewCollector creates the Prometheus metrics under the given namespace and
// registers them on a dedicated registry.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		TasksProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tasks_processed_total",
				Help:      "Total number of background tasks processed successfully",
			},
			[]string{"queue", "task_type"},
		),
		TasksFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tasks_failed_total",
				Help:      "Total number of background tasks that failed",
			},
			[]string{"queue", "task_type"},
		),
		TaskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "task_duration_seconds",
				Help:      "Background task processing duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"queue", "task_type"},
		),
		QueueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "queue_depth",
				Help:      "Current number of tasks waiting in each queue",
			},
			[]string{"queue"},
		),
		CacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of cache hits",
			},
		),
		CacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of cache misses",
			},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.TasksProcessed,
		c.TasksFailed,
		c.TaskDuration,
		c.QueueDepth,
		c.CacheHits,
		c.CacheMisses,
	)

	return c
}

// Registry exposes the underlying registry for the /metrics handler.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
