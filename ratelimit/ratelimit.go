// Package ratelimit implements a small in-memory sliding-window limiter
// keyed by an action identifier (typically "action:clientIP").
package ratelimit

import (
	"sync"
	"time"
)

// Limiter tracks request timestamps per key. State is ephemeral and local
// to the process.
type Limiter struct {
	mu   sync.Mutex
	hits map[string][]time.Time
	now  func() time.Time
}

// New creates an empty limiter.
func New() *Limiter {
	return &Limiter{
		hits: make(map[string][]time.Time),
		now:  time.Now,
	}
}

// Allow reports whether another event is permitted for key, recording it
// when allowed. At most limit events are allowed per sliding window.
func (l *Limiter) Allow(key string, limit int, window time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-window)

	recent := l.hits[key][:0]
	for _, t := range l.hits[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= limit {
		l.hits[key] = recent
		return false
	}

	l.hits[key] = append(recent, now)
	return true
}

// Prune drops keys with no events inside the window. Callers may run it
// periodically to bound memory.
func (l *Limiter) Prune(window time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-window)
	for key, times := range l.hits {
		live := times[:0]
		for _, t := range times {
			if t.After(cutoff) {
				live = append(live, t)
			}
		}
		if len(live) == 0 {
			delete(l.hits, key)
		} else {
			l.hits[key] = live
		}
	}
}
