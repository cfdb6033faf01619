package workers

import (
	"context"
	"sync"
	"time"

	"learnlytics-backend/application/ports"
	"learnlytics-backend/application/services"
	"learnlytics-backend/application/tasks"
	"learnlytics-backend/pkg/observability"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	// activeUserWindow and activeUserLimit bound the periodic analytics batch.
	activeUserWindow = 24 * time.Hour
	activeUserLimit  = 100

	// workerMetricsKey is the cache id the monitoring loop writes snapshots
	// under.
	workerMetricsKey = "snapshot"
	workerMetricsTTL = 5 * time.Minute
)

// Intervals configures how often each scheduler fires.
type Intervals struct {
	ModelTraining  time.Duration
	AnalyticsBatch time.Duration
	CacheRefresh   time.Duration
	Monitoring     time.Duration
}

// DefaultIntervals returns the production schedule.
func DefaultIntervals() Intervals {
	return Intervals{
		ModelTraining:  time.Hour,
		AnalyticsBatch: 5 * time.Minute,
		CacheRefresh:   10 * time.Minute,
		Monitoring:     time.Minute,
	}
}

// Scheduler produces periodic tasks and runs the monitoring loop. It only
// enqueues; all processing happens in the worker pool.
type Scheduler struct {
	queues    *tasks.QueueManager
	users     ports.UserRepository
	cache     *services.CacheService
	stats     *observability.WorkerStats
	collector *observability.Collector
	intervals Intervals
	logger    *zap.Logger

	cron   *cron.Cron
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates the periodic task producers.
func NewScheduler(
	queues *tasks.QueueManager,
	users ports.UserRepository,
	cache *services.CacheService,
	stats *observability.WorkerStats,
	collector *observability.Collector,
	intervals Intervals,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		queues:    queues,
		users:     users,
		cache:     cache,
		stats:     stats,
		collector: collector,
		intervals: intervals,
		logger:    logger,
	}
}

// Start registers the cron entries and launches the monitoring loop.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	s.cron = cron.New()
	entries := []struct {
		every time.Duration
		run   func(context.Context)
	}{
		{s.intervals.ModelTraining, s.ScheduleModelTraining},
		{s.intervals.AnalyticsBatch, s.ScheduleAnalyticsBatch},
		{s.intervals.CacheRefresh, s.ScheduleCacheRefresh},
	}
	for _, entry := range entries {
		run := entry.run
		if _, err := s.cron.AddFunc("@every "+entry.every.String(), func() { run(ctx) }); err != nil {
			return err
		}
	}
	s.cron.Start()

	s.wg.Add(1)
	go s.monitorLoop(ctx)

	s.logger.Info("Schedulers started",
		zap.Duration("modelTraining", s.intervals.ModelTraining),
		zap.Duration("analyticsBatch", s.intervals.AnalyticsBatch),
		zap.Duration("cacheRefresh", s.intervals.CacheRefresh),
		zap.Duration("monitoring", s.intervals.Monitoring),
	)
	return nil
}

// Stop halts the cron entries and the monitoring loop, waiting for any
// in-flight production to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("Schedulers stopped")
}

// ScheduleModelTraining enqueues one retraining task per trainable model.
func (s *Scheduler) ScheduleModelTraining(ctx context.Context) {
	for _, taskType := range []tasks.Type{tasks.TypeGapDetectionTraining, tasks.TypeRecommendationTraining} {
		task := tasks.New(taskType, "scheduler", nil)
		if !s.queues.Enqueue(tasks.QueueMLTraining, task) {
			s.logger.Warn("Dropped model training task, queue full",
				zap.String("taskType", string(taskType)),
			)
		}
	}
	s.logger.Debug("Model training scheduled")
}

// ScheduleAnalyticsBatch enqueues one precompute task per user active within
// the last day, so each user fails or succeeds on its own.
func (s *Scheduler) ScheduleAnalyticsBatch(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-activeUserWindow)
	userIDs, err := s.users.ActiveUsersSince(ctx, cutoff, activeUserLimit)
	if err != nil {
		s.logger.Error("Failed to list active users for analytics batch", zap.Error(err))
		return
	}
	if len(userIDs) == 0 {
		return
	}

	enqueued := 0
	for _, userID := range userIDs {
		task := tasks.New(tasks.TypeUserAnalyticsPrecompute, "scheduler", map[string]string{
			"user_id": userID,
		})
		if s.queues.Enqueue(tasks.QueueAnalytics, task) {
			enqueued++
		}
	}

	s.logger.Info("Analytics batch scheduled",
		zap.Int("activeUsers", len(userIDs)),
		zap.Int("tasks", enqueued),
	)
}

// ScheduleCacheRefresh enqueues the fixed set of cache refresh tasks.
func (s *Scheduler) ScheduleCacheRefresh(ctx context.Context) {
	refreshTypes := []tasks.Type{
		tasks.TypeRefreshDashboard,
		tasks.TypeRefreshUserAnalytics,
		tasks.TypeRefreshRecommendations,
	}
	for _, taskType := range refreshTypes {
		task := tasks.New(taskType, "scheduler", nil).WithPriority(tasks.PriorityLow)
		if !s.queues.Enqueue(tasks.QueueCacheRefresh, task) {
			s.logger.Warn("Dropped cache refresh task, queue full",
				zap.String("taskType", string(taskType)),
			)
		}
	}
	s.logger.Debug("Cache refresh scheduled")
}

func (s *Scheduler) monitorLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.intervals.Monitoring)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CollectWorkerMetrics(ctx)
		}
	}
}

// CollectWorkerMetrics snapshots the worker counters and queue depths into
// the cache and the gauge metrics.
func (s *Scheduler) CollectWorkerMetrics(ctx context.Context) {
	snap := s.stats.Snapshot()
	snap.QueueSizes = s.queues.Depths()

	s.cache.Set(ctx, workerMetricsKey, snap, workerMetricsTTL, services.CacheWorkerMetrics)

	if s.collector != nil {
		for queueName, depth := range snap.QueueSizes {
			s.collector.QueueDepth.WithLabelValues(queueName).Set(float64(depth))
		}
	}
}
