package ratelimit

import (
	"sync"
	"time"
)

type fixedEntry struct {
	count   int
	resetAt time.Time
}

// FixedWindow counts calls per key in windows that start on the first call.
// Every call increments the counter, including rejected ones.
type FixedWindow struct {
	mu sync.Mutex

	window  time.Duration
	limit   int
	sweepAt int
	clock   Clock
	entries map[string]*fixedEntry
}

func NewFixedWindow(window time.Duration, limit, sweepAt int, clock Clock) *FixedWindow {
	if clock == nil {
		clock = SystemClock
	}
	return &FixedWindow{
		window:  window,
		limit:   limit,
		sweepAt: sweepAt,
		clock:   clock,
		entries: make(map[string]*fixedEntry),
	}
}

// NewGeneralGate is the per-IP API limiter: 100 calls per 3s.
func NewGeneralGate(clock Clock) *FixedWindow {
	return NewFixedWindow(3*time.Second, 100, 10000, clock)
}

func (f *FixedWindow) Allow(key string) bool {
	return f.Decide(key).Allowed
}

func (f *FixedWindow) Decide(key string) Decision {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.clock.Now()

	e, ok := f.entries[key]
	if !ok || !now.Before(e.resetAt) {
		f.entries[key] = &fixedEntry{count: 1, resetAt: now.Add(f.window)}
		if !ok && len(f.entries) > f.sweepAt {
			f.sweep(now)
		}
		return Decision{Allowed: true}
	}

	e.count++
	if e.count > f.limit {
		return Decision{RetryAfter: e.resetAt.Sub(now)}
	}
	return Decision{Allowed: true}
}

func (f *FixedWindow) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func (f *FixedWindow) sweep(now time.Time) {
	for k, e := range f.entries {
		if !now.Before(e.resetAt) {
			delete(f.entries, k)
		}
	}
}
