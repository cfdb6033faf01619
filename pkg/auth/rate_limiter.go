package auth

import (
	"context"
	"sync"
	"time"
)

// slidingWindowLimiter counts requests per key over a rolling window.
// Timestamps outside the window are pruned on every call, so idle keys
// shrink back to an empty slice.
type slidingWindowLimiter struct {
	mu         sync.Mutex
	requests   map[string][]time.Time
	limit      int
	windowSize time.Duration
}

func newSlidingWindowLimiter(limit int, windowSize time.Duration) *slidingWindowLimiter {
	return &slidingWindowLimiter{
		requests:   make(map[string][]time.Time),
		limit:      limit,
		windowSize: windowSize,
	}
}

// allow records the request and reports whether key is under its limit.
func (l *slidingWindowLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-l.windowSize)

	kept := l.requests[key][:0]
	for _, at := range l.requests[key] {
		if at.After(windowStart) {
			kept = append(kept, at)
		}
	}

	if len(kept) >= l.limit {
		l.requests[key] = kept
		return false
	}

	l.requests[key] = append(kept, now)
	return true
}

// IPRateLimiter limits requests per client IP per minute.
type IPRateLimiter struct {
	limiter *slidingWindowLimiter
}

// NewIPRateLimiter creates a per-IP limiter with the given per-minute budget.
func NewIPRateLimiter(requestsPerMinute int) *IPRateLimiter {
	return &IPRateLimiter{
		limiter: newSlidingWindowLimiter(requestsPerMinute, time.Minute),
	}
}

// Allow reports whether a request from ip is within its budget.
func (l *IPRateLimiter) Allow(ctx context.Context, ip string) (bool, error) {
	return l.limiter.allow("ip:" + ip), nil
}

// UserRateLimiter limits requests per authenticated user per minute.
type UserRateLimiter struct {
	limiter *slidingWindowLimiter
}

// NewUserRateLimiter creates a per-user limiter with the given per-minute
// budget.
func NewUserRateLimiter(requestsPerMinute int) *UserRateLimiter {
	return &UserRateLimiter{
		limiter: newSlidingWindowLimiter(requestsPerMinute, time.Minute),
	}
}

// Allow reports whether a request from userID is within its budget.
func (l *UserRateLimiter) Allow(ctx context.Context, userID string) (bool, error) {
	return l.limiter.allow("user:" + userID), nil
}
