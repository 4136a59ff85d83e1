package nlu

import (
	"sync"
	"time"
)

// DefaultRateLimit is the number of classifications allowed per user per
// window when no limit is configured.
const DefaultRateLimit = 20

// RateLimiter enforces a per-user sliding-window limit on classification
// calls, so one chatty user cannot exhaust the NLU quota for everyone.
// It is safe for concurrent use.
type RateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	now    func() time.Time
	calls  map[string][]time.Time
}

// NewRateLimiter allows at most limit calls per user within window.
// Non-positive values fall back to DefaultRateLimit and one minute.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		calls:  make(map[string][]time.Time),
	}
}

// Allow records a call for userID and reports whether it is within the limit.
// A nil limiter allows everything.
func (r *RateLimiter) Allow(userID string) bool {
	if r == nil {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	recent := r.prune(userID, now)
	if len(recent) >= r.limit {
		return false
	}
	r.calls[userID] = append(recent, now)
	return true
}

// Sweep forgets users with no calls inside the current window.
func (r *RateLimiter) Sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for user := range r.calls {
		r.prune(user, now)
	}
}

// prune drops timestamps older than the window; r.mu must be held.
func (r *RateLimiter) prune(userID string, now time.Time) []time.Time {
	cutoff := now.Add(-r.window)
	kept := r.calls[userID][:0]
	for _, t := range r.calls[userID] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(r.calls, userID)
		return nil
	}
	r.calls[userID] = kept
	return kept
}

// SetClock replaces the time source. Intended for tests.
func (r *RateLimiter) SetClock(now func() time.Time) {
	r.mu.Lock()
	r.now = now
	r.mu.Unlock()
}
