package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Queue names. Each queue is independent: a full ML-training queue never
// blocks analytics enqueues.
const (
	QueueMLTraining   = "ml_training"
	QueueAnalytics    = "analytics"
	QueueCacheRefresh = "cache_refresh"
)

// Default queue capacities.
const (
	DefaultMLTrainingCapacity   = 100
	DefaultAnalyticsCapacity    = 500
	DefaultCacheRefreshCapacity = 200
)

// ErrTimeout is the sentinel returned by Dequeue when no task arrived within
// the poll timeout. It is not a failure; consumers loop and re-check their
// shutdown flag.
var ErrTimeout = timeoutError{}

type timeoutError struct{}

func (timeoutError) Error() string { return "queue: dequeue timed out" }

// QueueManager owns the named bounded FIFO queues. Enqueue never blocks: a
// task offered to a full queue is dropped with a warning and a false return.
type QueueManager struct {
	queues map[string]chan Task
	logger *zap.Logger
}

// Capacities configures the per-queue bounds.
type Capacities struct {
	MLTraining   int
	Analytics    int
	CacheRefresh int
}

// DefaultCapacities returns the standard queue bounds.
func DefaultCapacities() Capacities {
	return Capacities{
		MLTraining:   DefaultMLTrainingCapacity,
		Analytics:    DefaultAnalyticsCapacity,
		CacheRefresh: DefaultCacheRefreshCapacity,
	}
}

// NewQueueManager creates the three task queues with the given capacities.
func NewQueueManager(caps Capacities, logger *zap.Logger) *QueueManager {
	return &QueueManager{
		queues: map[string]chan Task{
			QueueMLTraining:   make(chan Task, caps.MLTraining),
			QueueAnalytics:    make(chan Task, caps.Analytics),
			QueueCacheRefresh: make(chan Task, caps.CacheRefresh),
		},
		logger: logger,
	}
}

// Enqueue offers a task to the named queue. It returns false if the queue is
// unknown or at capacity; a full queue is a warning, never an error.
func (m *QueueManager) Enqueue(queueName string, task Task) bool {
	queue, ok := m.queues[queueName]
	if !ok {
		m.logger.Warn("Enqueue to unknown queue",
			zap.String("queue", queueName),
			zap.String("taskType", string(task.Type)),
		)
		return false
	}

	select {
	case queue <- task:
		m.logger.Debug("Task enqueued",
			zap.String("queue", queueName),
			zap.String("taskType", string(task.Type)),
			zap.String("taskID", task.ID),
		)
		return true
	default:
		m.logger.Warn("Queue is full, dropping task",
			zap.String("queue", queueName),
			zap.String("taskType", string(task.Type)),
			zap.Int("capacity", cap(queue)),
		)
		return false
	}
}

// Dequeue waits up to timeout for a task from the named queue. On timeout it
// returns ErrTimeout so the caller can loop and observe shutdown. Context
// cancellation also surfaces as ErrTimeout: the consumer loop exits on its
// own running check.
func (m *QueueManager) Dequeue(ctx context.Context, queueName string, timeout time.Duration) (Task, error) {
	queue, ok := m.queues[queueName]
	if !ok {
		return Task{}, ErrTimeout
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case task := <-queue:
		return task, nil
	case <-timer.C:
		return Task{}, ErrTimeout
	case <-ctx.Done():
		return Task{}, ErrTimeout
	}
}

// Depth returns the number of queued tasks in the named queue.
func (m *QueueManager) Depth(queueName string) int {
	if queue, ok := m.queues[queueName]; ok {
		return len(queue)
	}
	return 0
}

// Depths returns the current depth of every queue.
func (m *QueueManager) Depths() map[string]int {
	depths := make(map[string]int, len(m.queues))
	for name, queue := range m.queues {
		depths[name] = len(queue)
	}
	return depths
}

// Names returns the known queue names.
func (m *QueueManager) Names() []string {
	return []string{QueueMLTraining, QueueAnalytics, QueueCacheRefresh}
}
