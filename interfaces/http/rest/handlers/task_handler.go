package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"learnlytics-backend/application/tasks"
	"learnlytics-backend/pkg/auth"
	apperrors "learnlytics-backend/pkg/errors"
	"learnlytics-backend/pkg/utils"

	"go.uber.org/zap"
)

// WorkerStatus reports whether the queue consumers are running.
type WorkerStatus interface {
	IsRunning() bool
}

// TaskHandler schedules background tasks and reports queue state.
type TaskHandler struct {
	queues  *tasks.QueueManager
	workers WorkerStatus
	logger  *zap.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(queues *tasks.QueueManager, workers WorkerStatus, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		queues:  queues,
		workers: workers,
		logger:  logger,
	}
}

// ScheduleAnalyticsRequest represents the request body for scheduling
// analytics work.
type ScheduleAnalyticsRequest struct {
	UserID   string   `json:"user_id,omitempty" validate:"omitempty,min=1,max=128"`
	UserIDs  []string `json:"user_ids,omitempty" validate:"omitempty,max=100,dive,min=1,max=128"`
	Priority string   `json:"priority,omitempty" validate:"omitempty,oneof=low normal high"`
}

// ScheduleTrainingRequest represents the request body for scheduling model
// retraining.
type ScheduleTrainingRequest struct {
	Model string `json:"model" validate:"required,oneof=gap_detection recommendation"`
}

// ScheduleTaskResponse represents the response for a scheduled task.
type ScheduleTaskResponse struct {
	TaskID   string `json:"task_id"`
	TaskType string `json:"task_type"`
	Queue    string `json:"queue"`
	Message  string `json:"message"`
}

// ScheduleAnalytics handles POST /tasks/analytics. A single user schedules a
// precompute task; a list schedules one batch task.
func (h *TaskHandler) ScheduleAnalytics(w http.ResponseWriter, r *http.Request) {
	var req ScheduleAnalyticsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, apperrors.NewValidationError("invalid request body").WithCause(err))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondError(w, h.logger, apperrors.NewValidationError(err.Error()))
		return
	}
	if req.UserID == "" && len(req.UserIDs) == 0 {
		respondError(w, h.logger, apperrors.NewValidationError("either user_id or user_ids is required"))
		return
	}

	userCtx, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, h.logger, apperrors.NewUnauthorizedError(""))
		return
	}

	var task tasks.Task
	if req.UserID != "" {
		task = tasks.New(tasks.TypeUserAnalyticsPrecompute, userCtx.UserID, map[string]string{
			"user_id": req.UserID,
		})
	} else {
		task = tasks.New(tasks.TypeBatchAnalyticsUpdate, userCtx.UserID, map[string]string{
			"user_ids": strings.Join(req.UserIDs, ","),
		})
	}
	if req.Priority != "" {
		task = task.WithPriority(tasks.Priority(req.Priority))
	}

	if !h.queues.Enqueue(tasks.QueueAnalytics, task) {
		respondError(w, h.logger, apperrors.NewUnavailableError("analytics queue is full"))
		return
	}

	respondJSON(w, h.logger, http.StatusAccepted, ScheduleTaskResponse{
		TaskID:   task.ID,
		TaskType: string(task.Type),
		Queue:    tasks.QueueAnalytics,
		Message:  "Task scheduled",
	})
}

// ScheduleTraining handles POST /tasks/ml-training. Admin only.
func (h *TaskHandler) ScheduleTraining(w http.ResponseWriter, r *http.Request) {
	var req ScheduleTrainingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, apperrors.NewValidationError("invalid request body").WithCause(err))
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondError(w, h.logger, apperrors.NewValidationError(err.Error()))
		return
	}

	userCtx, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, h.logger, apperrors.NewUnauthorizedError(""))
		return
	}
	if !hasRole(userCtx, "admin") {
		respondError(w, h.logger, apperrors.NewForbiddenError("training requires admin role"))
		return
	}

	taskType := tasks.TypeGapDetectionTraining
	if req.Model == "recommendation" {
		taskType = tasks.TypeRecommendationTraining
	}
	task := tasks.New(taskType, userCtx.UserID, nil).WithPriority(tasks.PriorityHigh)

	if !h.queues.Enqueue(tasks.QueueMLTraining, task) {
		respondError(w, h.logger, apperrors.NewUnavailableError("training queue is full"))
		return
	}

	respondJSON(w, h.logger, http.StatusAccepted, ScheduleTaskResponse{
		TaskID:   task.ID,
		TaskType: string(task.Type),
		Queue:    tasks.QueueMLTraining,
		Message:  "Training scheduled",
	})
}

// QueueStatus handles GET /queues/status.
func (h *TaskHandler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	running := h.workers != nil && h.workers.IsRunning()
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"queues":     h.queues.Depths(),
		"is_running": running,
	})
}
