// Package ratelimit caps requests-per-minute per client on the LLM-backed
// routes, since every one of them costs upstream money. Uses a sliding
// window keyed by client address. Supports both in-memory (single instance)
// and Redis (distributed) backends.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// RateLimiter reports whether a request from the given client is allowed,
// the remaining quota, and the window reset time.
type RateLimiter interface {
	Allow(ctx context.Context, clientID string, limit int) (allowed bool, remaining int, resetAt time.Time, err error)
}

// InMemoryRateLimiter implements rate limiting using in-memory windows.
// Suitable for single-instance deployments.
type InMemoryRateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	count   int
	resetAt time.Time
}

func NewInMemoryRateLimiter() *InMemoryRateLimiter {
	return &InMemoryRateLimiter{
		windows: make(map[string]*window),
	}
}

func (r *InMemoryRateLimiter) Allow(ctx context.Context, clientID string, limit int) (bool, int, time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowDuration := time.Minute

	w, ok := r.windows[clientID]
	if !ok || now.After(w.resetAt) {
		w = &window{
			count:   0,
			resetAt: now.Add(windowDuration),
		}
		r.windows[clientID] = w
	}

	if w.count >= limit {
		return false, 0, w.resetAt, nil
	}

	w.count++
	remaining := limit - w.count

	return true, remaining, w.resetAt, nil
}
