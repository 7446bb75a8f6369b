package safety

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// defaultRateKey buckets actions that carry no request_id.
const defaultRateKey = "default"

// RateLimiter bounds how many actions each request key may submit within a
// trailing time window. Timestamps older than the window are purged on every
// call; a rejected call records nothing, so hammering a full window does not
// extend it.
type RateLimiter struct {
	mu       sync.Mutex
	max      int
	window   time.Duration
	requests map[string][]time.Time

	now func() time.Time // swappable for tests
}

func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	if maxRequests <= 0 {
		maxRequests = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &RateLimiter{
		max:      maxRequests,
		window:   window,
		requests: make(map[string][]time.Time),
		now:      time.Now,
	}
}

func (r *RateLimiter) Name() string { return "rate_limiter" }

func (r *RateLimiter) Validate(action Action) ValidationResult {
	key := action.Context["request_id"]
	if key == "" {
		key = defaultRateKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	cutoff := now.Add(-r.window)
	kept := r.requests[key][:0]
	for _, ts := range r.requests[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	r.requests[key] = kept

	if len(kept) >= r.max {
		return Reject(ViolationRateLimitExceeded, 0.99,
			fmt.Sprintf("rate limit exceeded for %q: %d requests in %s", key, len(kept), r.window))
	}

	r.requests[key] = append(kept, now)
	return Allow(0.95, "within rate limit")
}

// Cleanup drops keys whose most recent timestamp is older than twice the
// window, bounding memory for long-running processes with churning keys.
func (r *RateLimiter) Cleanup() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-2 * r.window)
	removed := 0
	for key, stamps := range r.requests {
		if len(stamps) == 0 || stamps[len(stamps)-1].Before(cutoff) {
			delete(r.requests, key)
			removed++
		}
	}
	return removed
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (r *RateLimiter) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Cleanup()
		}
	}
}

// TrackedKeys reports how many keys currently hold timestamps (for tests and
// the audit report).
func (r *RateLimiter) TrackedKeys() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}
