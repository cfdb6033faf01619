// Package tasks defines the background task model and the bounded in-process
// queues that connect schedulers and API callers to the worker pool.
//
// Tasks are at-most-once: queues are memory-backed, so in-flight and queued
// tasks are lost on process crash. A full queue drops the new task rather
// than blocking the producer.
package tasks

import (
	"time"

	"github.com/google/uuid"
)

// Type routes a task to its handler. The set is closed: workers drop and log
// tasks with a type they have no handler for.
type Type string

const (
	// ML training queue task types.
	TypeGapDetectionTraining   Type = "gap_detection_training"
	TypeRecommendationTraining Type = "recommendation_training"

	// Analytics queue task types.
	TypeUserAnalyticsPrecompute Type = "user_analytics_precompute"
	TypeBatchAnalyticsUpdate    Type = "batch_analytics_update"

	// Cache refresh queue task types.
	TypeRefreshDashboard       Type = "refresh_dashboard"
	TypeRefreshUserAnalytics   Type = "refresh_user_analytics"
	TypeRefreshRecommendations Type = "refresh_recommendations"
)

// Priority is advisory metadata carried on a task. Queues are pure FIFO;
// priority is never used to reorder dequeues.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Task is one unit of background work. Immutable once enqueued.
type Task struct {
	ID          string            `json:"id"`
	Type        Type              `json:"task_type"`
	Payload     map[string]string `json:"payload,omitempty"`
	Priority    Priority          `json:"priority"`
	ScheduledBy string            `json:"scheduled_by"`
	ScheduledAt time.Time         `json:"scheduled_at"`
}

// New creates a task with a fresh ID and the current timestamp.
func New(taskType Type, scheduledBy string, payload map[string]string) Task {
	return Task{
		ID:          uuid.NewString(),
		Type:        taskType,
		Payload:     payload,
		Priority:    PriorityNormal,
		ScheduledBy: scheduledBy,
		ScheduledAt: time.Now().UTC(),
	}
}

// WithPriority returns a copy of the task with the given priority.
func (t Task) WithPriority(p Priority) Task {
	t.Priority = p
	return t
}

// UserID returns the user the task targets, if any.
func (t Task) UserID() string {
	return t.Payload["user_id"]
}
