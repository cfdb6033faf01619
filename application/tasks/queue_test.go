package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestManager(analyticsCap int) *QueueManager {
	return NewQueueManager(Capacities{
		MLTraining:   2,
		Analytics:    analyticsCap,
		CacheRefresh: 2,
	}, zap.NewNop())
}

func TestQueueManager_EnqueueDequeue_FIFO(t *testing.T) {
	m := newTestManager(10)

	first := New(TypeUserAnalyticsPrecompute, "test", map[string]string{"user_id": "u1"})
	second := New(TypeUserAnalyticsPrecompute, "test", map[string]string{"user_id": "u2"})

	require.True(t, m.Enqueue(QueueAnalytics, first))
	require.True(t, m.Enqueue(QueueAnalytics, second))

	got, err := m.Dequeue(context.Background(), QueueAnalytics, time.Second)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	got, err = m.Dequeue(context.Background(), QueueAnalytics, time.Second)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
}

func TestQueueManager_DropsWhenFull(t *testing.T) {
	m := newTestManager(2)

	taskA := New(TypeUserAnalyticsPrecompute, "test", map[string]string{"user_id": "a"})
	taskB := New(TypeUserAnalyticsPrecompute, "test", map[string]string{"user_id": "b"})
	taskC := New(TypeUserAnalyticsPrecompute, "test", map[string]string{"user_id": "c"})

	assert.True(t, m.Enqueue(QueueAnalytics, taskA))
	assert.True(t, m.Enqueue(QueueAnalytics, taskB))
	assert.False(t, m.Enqueue(QueueAnalytics, taskC), "full queue must drop, not block")
	assert.Equal(t, 2, m.Depth(QueueAnalytics))

	// Draining makes room again.
	got, err := m.Dequeue(context.Background(), QueueAnalytics, time.Second)
	require.NoError(t, err)
	assert.Equal(t, taskA.ID, got.ID)

	got, err = m.Dequeue(context.Background(), QueueAnalytics, time.Second)
	require.NoError(t, err)
	assert.Equal(t, taskB.ID, got.ID)

	taskD := New(TypeUserAnalyticsPrecompute, "test", map[string]string{"user_id": "d"})
	assert.True(t, m.Enqueue(QueueAnalytics, taskD))
}

func TestQueueManager_DequeueTimeout(t *testing.T) {
	m := newTestManager(2)

	start := time.Now()
	_, err := m.Dequeue(context.Background(), QueueAnalytics, 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestQueueManager_DequeueContextCancel(t *testing.T) {
	m := newTestManager(2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Dequeue(ctx, QueueAnalytics, time.Second)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestQueueManager_UnknownQueue(t *testing.T) {
	m := newTestManager(2)

	assert.False(t, m.Enqueue("missing", New(TypeRefreshDashboard, "test", nil)))

	_, err := m.Dequeue(context.Background(), "missing", 10*time.Millisecond)
	assert.Error(t, err)
}

func TestQueueManager_Depths(t *testing.T) {
	m := newTestManager(5)

	m.Enqueue(QueueAnalytics, New(TypeUserAnalyticsPrecompute, "test", map[string]string{"user_id": "u1"}))
	m.Enqueue(QueueMLTraining, New(TypeGapDetectionTraining, "test", nil))

	depths := m.Depths()
	assert.Equal(t, 1, depths[QueueAnalytics])
	assert.Equal(t, 1, depths[QueueMLTraining])
	assert.Equal(t, 0, depths[QueueCacheRefresh])
}

func TestTask_Priority(t *testing.T) {
	task := New(TypeUserAnalyticsPrecompute, "test", map[string]string{"user_id": "u1"})
	assert.Equal(t, PriorityNormal, task.Priority)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "u1", task.UserID())

	high := task.WithPriority(PriorityHigh)
	assert.Equal(t, PriorityHigh, high.Priority)
	assert.Equal(t, task.ID, high.ID)
}
