package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a sliding-window counter keyed by caller
type Limiter struct {
	mu      sync.Mutex
	limits  map[string][]time.Time
	window  time.Duration
	maxHits int
	now     func() time.Time
}

func NewLimiter(window time.Duration, maxHits int) *Limiter {
	return &Limiter{
		limits:  make(map[string][]time.Time),
		window:  window,
		maxHits: maxHits,
		now:     time.Now,
	}
}

func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(key, now)

	if len(l.limits[key]) >= l.maxHits {
		return false
	}

	l.limits[key] = append(l.limits[key], now)
	return true
}

// RetryAfter returns how long until key may be allowed again
func (l *Limiter) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(key, now)

	hits := l.limits[key]
	if len(hits) < l.maxHits || len(hits) == 0 {
		return 0
	}
	return hits[0].Add(l.window).Sub(now)
}

func (l *Limiter) prune(key string, now time.Time) {
	hits, exists := l.limits[key]
	if !exists {
		return
	}
	windowStart := now.Add(-l.window)
	valid := hits[:0]
	for _, hit := range hits {
		if hit.After(windowStart) {
			valid = append(valid, hit)
		}
	}
	if len(valid) == 0 {
		delete(l.limits, key)
		return
	}
	l.limits[key] = valid
}
