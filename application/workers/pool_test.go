package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"learnlytics-backend/application/tasks"
	"learnlytics-backend/pkg/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newPoolQueues(t *testing.T) *tasks.QueueManager {
	t.Helper()
	return tasks.NewQueueManager(tasks.Capacities{
		MLTraining:   10,
		Analytics:    10,
		CacheRefresh: 10,
	}, zap.NewNop())
}

// recorder collects the tasks a handler saw, across goroutines.
type recorder struct {
	mu    sync.Mutex
	seen  []string
	calls chan struct{}
}

func newRecorder(buffer int) *recorder {
	return &recorder{calls: make(chan struct{}, buffer)}
}

func (r *recorder) record(id string) {
	r.mu.Lock()
	r.seen = append(r.seen, id)
	r.mu.Unlock()
	r.calls <- struct{}{}
}

func (r *recorder) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.calls:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for call %d of %d", i+1, n)
		}
	}
}

func (r *recorder) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

func TestWorkerPool_ProcessesTasksInOrder(t *testing.T) {
	queues := newPoolQueues(t)
	stats := observability.NewWorkerStats()
	rec := newRecorder(10)

	handlers := map[tasks.Type]Handler{
		tasks.TypeUserAnalyticsPrecompute: func(ctx context.Context, task tasks.Task) error {
			rec.record(task.UserID())
			return nil
		},
	}

	pool := NewWorkerPool(queues, handlers, stats, nil, zap.NewNop())

	first := tasks.New(tasks.TypeUserAnalyticsPrecompute, "test", map[string]string{"user_id": "u1"})
	second := tasks.New(tasks.TypeUserAnalyticsPrecompute, "test", map[string]string{"user_id": "u2"})
	require.True(t, queues.Enqueue(tasks.QueueAnalytics, first))
	require.True(t, queues.Enqueue(tasks.QueueAnalytics, second))

	assert.False(t, pool.IsRunning())
	pool.Start(context.Background())
	defer pool.Stop()
	assert.True(t, pool.IsRunning())

	rec.wait(t, 2)
	assert.Equal(t, []string{"u1", "u2"}, rec.ids())

	require.Eventually(t, func() bool {
		snap := stats.Snapshot()
		return snap.TasksProcessed == 2 && snap.TasksFailed == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorkerPool_StopClearsRunningFlag(t *testing.T) {
	queues := newPoolQueues(t)
	pool := NewWorkerPool(queues, map[tasks.Type]Handler{}, observability.NewWorkerStats(), nil, zap.NewNop())

	pool.Start(context.Background())
	require.True(t, pool.IsRunning())

	pool.Stop()
	assert.False(t, pool.IsRunning())
}

func TestWorkerPool_HandlerFailureDoesNotStopConsumer(t *testing.T) {
	queues := newPoolQueues(t)
	stats := observability.NewWorkerStats()
	rec := newRecorder(10)

	handlers := map[tasks.Type]Handler{
		tasks.TypeUserAnalyticsPrecompute: func(ctx context.Context, task tasks.Task) error {
			rec.record(task.UserID())
			if task.UserID() == "bad" {
				return errors.New("compute failed")
			}
			return nil
		},
	}

	pool := NewWorkerPool(queues, handlers, stats, nil, zap.NewNop())

	require.True(t, queues.Enqueue(tasks.QueueAnalytics,
		tasks.New(tasks.TypeUserAnalyticsPrecompute, "test", map[string]string{"user_id": "bad"})))
	require.True(t, queues.Enqueue(tasks.QueueAnalytics,
		tasks.New(tasks.TypeUserAnalyticsPrecompute, "test", map[string]string{"user_id": "good"})))

	pool.Start(context.Background())
	defer pool.Stop()

	rec.wait(t, 2)
	assert.Equal(t, []string{"bad", "good"}, rec.ids())

	require.Eventually(t, func() bool {
		snap := stats.Snapshot()
		return snap.TasksProcessed == 1 && snap.TasksFailed == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorkerPool_PanicIsContained(t *testing.T) {
	queues := newPoolQueues(t)
	stats := observability.NewWorkerStats()
	rec := newRecorder(10)

	handlers := map[tasks.Type]Handler{
		tasks.TypeUserAnalyticsPrecompute: func(ctx context.Context, task tasks.Task) error {
			rec.record(task.UserID())
			if task.UserID() == "boom" {
				panic("handler exploded")
			}
			return nil
		},
	}

	pool := NewWorkerPool(queues, handlers, stats, nil, zap.NewNop())

	require.True(t, queues.Enqueue(tasks.QueueAnalytics,
		tasks.New(tasks.TypeUserAnalyticsPrecompute, "test", map[string]string{"user_id": "boom"})))
	require.True(t, queues.Enqueue(tasks.QueueAnalytics,
		tasks.New(tasks.TypeUserAnalyticsPrecompute, "test", map[string]string{"user_id": "after"})))

	pool.Start(context.Background())
	defer pool.Stop()

	rec.wait(t, 2)
	assert.Equal(t, []string{"boom", "after"}, rec.ids())

	require.Eventually(t, func() bool {
		return stats.Snapshot().TasksFailed == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorkerPool_UnknownTaskTypeIsDropped(t *testing.T) {
	queues := newPoolQueues(t)
	stats := observability.NewWorkerStats()
	rec := newRecorder(10)

	handlers := map[tasks.Type]Handler{
		tasks.TypeUserAnalyticsPrecompute: func(ctx context.Context, task tasks.Task) error {
			rec.record(task.UserID())
			return nil
		},
	}

	pool := NewWorkerPool(queues, handlers, stats, nil, zap.NewNop())

	// Valid type the table doesn't cover in this pool.
	require.True(t, queues.Enqueue(tasks.QueueAnalytics,
		tasks.New(tasks.TypeBatchAnalyticsUpdate, "test", map[string]string{"user_ids": "u1"})))
	require.True(t, queues.Enqueue(tasks.QueueAnalytics,
		tasks.New(tasks.TypeUserAnalyticsPrecompute, "test", map[string]string{"user_id": "u1"})))

	pool.Start(context.Background())
	defer pool.Stop()

	rec.wait(t, 1)
	assert.Equal(t, []string{"u1"}, rec.ids())

	require.Eventually(t, func() bool {
		return stats.Snapshot().TasksFailed == 1
	}, 2*time.Second, 10*time.Millisecond)
}
