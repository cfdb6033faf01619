// Package handlers contains the REST request handlers.
package handlers

import (
	"encoding/json"
	"net/http"

	"learnlytics-backend/application/services"
	"learnlytics-backend/pkg/auth"
	apperrors "learnlytics-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// DashboardHandler serves the dashboard read path.
type DashboardHandler struct {
	dashboards *services.DashboardService
	logger     *zap.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboards *services.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboards: dashboards,
		logger:     logger,
	}
}

// GetDashboard handles GET /dashboard/{userID}. The read path never fails;
// the response carries a source tag indicating which tier produced it.
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		respondError(w, h.logger, apperrors.NewValidationError("missing user ID"))
		return
	}

	userCtx, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, h.logger, apperrors.NewUnauthorizedError(""))
		return
	}
	if userCtx.UserID != userID && !hasRole(userCtx, "admin") {
		respondError(w, h.logger, apperrors.NewForbiddenError("cannot access another user's dashboard"))
		return
	}

	data := h.dashboards.GetDashboardData(r.Context(), userID)
	respondJSON(w, h.logger, http.StatusOK, data)
}

func hasRole(user *auth.UserContext, role string) bool {
	for _, r := range user.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func respondJSON(w http.ResponseWriter, logger *zap.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, logger *zap.Logger, appErr *apperrors.AppError) {
	if appErr.Cause != nil {
		logger.Warn("Request failed",
			zap.String("type", string(appErr.Type)),
			zap.Error(appErr.Cause),
		)
	}
	respondJSON(w, logger, appErr.HTTPStatus, appErr)
}
