package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"learnlytics-backend/application/tasks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubWorkerStatus struct {
	running bool
}

func (s stubWorkerStatus) IsRunning() bool { return s.running }

func queueStatusResponse(t *testing.T, handler *TaskHandler) (int, map[string]int, bool) {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.QueueStatus(rec, httptest.NewRequest(http.MethodGet, "/api/v1/queues/status", nil))

	var body struct {
		Queues    map[string]int `json:"queues"`
		IsRunning bool           `json:"is_running"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body.Queues, body.IsRunning
}

func TestQueueStatus_ReportsDepthsAndRunningFlag(t *testing.T) {
	queues := tasks.NewQueueManager(tasks.DefaultCapacities(), zap.NewNop())
	queues.Enqueue(tasks.QueueAnalytics, tasks.New(tasks.TypeUserAnalyticsPrecompute, "test", map[string]string{
		"user_id": "u1",
	}))
	handler := NewTaskHandler(queues, stubWorkerStatus{running: true}, zap.NewNop())

	code, depths, running := queueStatusResponse(t, handler)

	assert.Equal(t, http.StatusOK, code)
	assert.True(t, running)
	assert.Equal(t, 1, depths[tasks.QueueAnalytics])
	assert.Equal(t, 0, depths[tasks.QueueMLTraining])
	assert.Equal(t, 0, depths[tasks.QueueCacheRefresh])
}

func TestQueueStatus_WorkersNotStarted(t *testing.T) {
	queues := tasks.NewQueueManager(tasks.DefaultCapacities(), zap.NewNop())
	handler := NewTaskHandler(queues, stubWorkerStatus{}, zap.NewNop())

	code, _, running := queueStatusResponse(t, handler)

	assert.Equal(t, http.StatusOK, code)
	assert.False(t, running)
}
