package handlers

import (
	"net/http"

	"learnlytics-backend/application/services"
	"learnlytics-backend/pkg/auth"
	apperrors "learnlytics-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CacheHandler exposes cache warming, invalidation and statistics.
type CacheHandler struct {
	cache  *services.CacheService
	logger *zap.Logger
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(cache *services.CacheService, logger *zap.Logger) *CacheHandler {
	return &CacheHandler{
		cache:  cache,
		logger: logger,
	}
}

// WarmCache handles POST /cache/{userID}/warm. Runs a synchronous
// precomputation that populates every per-user cache entry.
func (h *CacheHandler) WarmCache(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		respondError(w, h.logger, apperrors.NewValidationError("missing user ID"))
		return
	}

	if !h.authorize(w, r, userID) {
		return
	}

	if !h.cache.Warm(r.Context(), userID) {
		respondError(w, h.logger, apperrors.NewExternalError("cache warming failed", nil))
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]string{
		"user_id": userID,
		"message": "Cache warmed",
	})
}

// InvalidateCache handles DELETE /cache/{userID}. Clears every per-user
// cache entry.
func (h *CacheHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		respondError(w, h.logger, apperrors.NewValidationError("missing user ID"))
		return
	}

	if !h.authorize(w, r, userID) {
		return
	}

	if !h.cache.InvalidateUser(r.Context(), userID) {
		respondError(w, h.logger, apperrors.NewExternalError("cache invalidation incomplete", nil))
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]string{
		"user_id": userID,
		"message": "Cache invalidated",
	})
}

// CacheStatistics handles GET /cache/statistics.
func (h *CacheHandler) CacheStatistics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"counters":    h.cache.Stats(),
		"cache_types": h.cache.CacheTypes(),
	})
}

func (h *CacheHandler) authorize(w http.ResponseWriter, r *http.Request, userID string) bool {
	userCtx, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, h.logger, apperrors.NewUnauthorizedError(""))
		return false
	}
	if userCtx.UserID != userID && !hasRole(userCtx, "admin") {
		respondError(w, h.logger, apperrors.NewForbiddenError("cannot manage another user's cache"))
		return false
	}
	return true
}
