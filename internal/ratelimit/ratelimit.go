// Package ratelimit provides a sliding-window flood limiter keyed by user
// id, with explicit eviction so memory stays bounded.
package ratelimit

import (
	"sync"
	"time"
)

type Limiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	events map[int64][]time.Time
}

// New builds a limiter allowing at most limit actions per user within the
// window.
func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:  limit,
		window: window,
		events: make(map[int64][]time.Time),
	}
}

// Allow records an action attempt at now and reports whether it is within
// the user's budget. Rejected attempts are not recorded.
func (l *Limiter) Allow(userID int64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := trim(l.events[userID], now.Add(-l.window))
	if len(kept) >= l.limit {
		l.events[userID] = kept
		return false
	}
	l.events[userID] = append(kept, now)
	return true
}

// Sweep drops users whose actions have all left the window and reports how
// many entries were removed.
func (l *Limiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	removed := 0
	for id, times := range l.events {
		if kept := trim(times, cutoff); len(kept) == 0 {
			delete(l.events, id)
			removed++
		} else {
			l.events[id] = kept
		}
	}
	return removed
}

func trim(times []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	return times[i:]
}
