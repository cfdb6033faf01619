package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"learnlytics-backend/pkg/auth"
	apperrors "learnlytics-backend/pkg/errors"

	"go.uber.org/zap"
)

// Authenticate creates the authentication middleware: IP and per-user rate
// limiting plus JWT validation. The validated user lands in the request
// context.
func Authenticate(validator *auth.JWTValidator, logger *zap.Logger) func(next http.Handler) http.Handler {
	ipLimiter := auth.NewIPRateLimiter(100)     // requests per minute per IP
	userLimiter := auth.NewUserRateLimiter(200) // requests per minute per user

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := getClientIP(r)

			allowed, err := ipLimiter.Allow(r.Context(), clientIP)
			if err != nil {
				logger.Error("Rate limiter error", zap.Error(err))
				respondAppError(w, apperrors.NewInternalError("internal server error"))
				return
			}
			if !allowed {
				respondAppError(w, apperrors.NewRateLimitError("rate limit exceeded"))
				return
			}

			token := extractToken(r)
			if token == "" {
				respondAppError(w, apperrors.NewUnauthorizedError("missing authentication token"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.Warn("Invalid token",
					zap.Error(err),
					zap.String("ip", clientIP),
					zap.String("path", r.URL.Path),
				)

				switch err {
				case auth.ErrExpiredToken:
					respondAppError(w, apperrors.NewUnauthorizedError("token has expired"))
				case auth.ErrInvalidSignature:
					respondAppError(w, apperrors.NewUnauthorizedError("invalid token signature"))
				default:
					respondAppError(w, apperrors.NewUnauthorizedError("invalid token"))
				}
				return
			}

			allowed, err = userLimiter.Allow(r.Context(), claims.UserID)
			if err != nil {
				logger.Error("User rate limiter error", zap.Error(err))
				respondAppError(w, apperrors.NewInternalError("internal server error"))
				return
			}
			if !allowed {
				respondAppError(w, apperrors.NewRateLimitError("user rate limit exceeded"))
				return
			}

			userCtx := &auth.UserContext{
				UserID: claims.UserID,
				Email:  claims.Email,
				Roles:  claims.Roles,
			}
			ctx := auth.SetUserInContext(r.Context(), userCtx)

			logger.Debug("Request authenticated",
				zap.String("user_id", claims.UserID),
				zap.String("path", r.URL.Path),
				zap.String("method", r.Method),
			)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken pulls the bearer token from the Authorization header or the
// access_token query parameter.
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		authHeader = r.Header.Get("authorization")
	}
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}
	return r.URL.Query().Get("access_token")
}

// getClientIP resolves the client address behind proxies.
func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.IndexByte(forwarded, ','); idx >= 0 {
			return strings.TrimSpace(forwarded[:idx])
		}
		return strings.TrimSpace(forwarded)
	}
	if realIP := r.Header.Get("X-Real-Ip"); realIP != "" {
		return realIP
	}
	if idx := strings.LastIndexByte(r.RemoteAddr, ':'); idx >= 0 {
		return r.RemoteAddr[:idx]
	}
	return r.RemoteAddr
}

func respondAppError(w http.ResponseWriter, appErr *apperrors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.HTTPStatus)
	json.NewEncoder(w).Encode(appErr)
}
