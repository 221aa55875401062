package ratelimit

import (
	"sync"
	"time"
)

// SlidingWindow keeps per-key timestamps of allowed calls. Rejected calls
// are not recorded, so a client hammering the endpoint is not locked out
// beyond the window.
type SlidingWindow struct {
	mu sync.Mutex

	window   time.Duration
	limit    int
	sweepAt  int
	clock    Clock
	attempts map[string][]time.Time
}

func NewSlidingWindow(window time.Duration, limit, sweepAt int, clock Clock) *SlidingWindow {
	if clock == nil {
		clock = SystemClock
	}
	return &SlidingWindow{
		window:   window,
		limit:    limit,
		sweepAt:  sweepAt,
		clock:    clock,
		attempts: make(map[string][]time.Time),
	}
}

// NewSubmissionGuard is the contact-form limiter: 3 calls per 60s.
func NewSubmissionGuard(clock Clock) *SlidingWindow {
	return NewSlidingWindow(60*time.Second, 3, 5000, clock)
}

func (s *SlidingWindow) Allow(key string) bool {
	return s.Decide(key).Allowed
}

func (s *SlidingWindow) Decide(key string) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	cutoff := now.Add(-s.window)

	kept := pruneBefore(s.attempts[key], cutoff)

	if len(kept) >= s.limit {
		s.attempts[key] = kept
		return Decision{RetryAfter: kept[0].Add(s.window).Sub(now)}
	}

	s.attempts[key] = append(kept, now)

	if len(s.attempts) > s.sweepAt {
		s.sweep(cutoff)
	}

	return Decision{Allowed: true}
}

// Len reports the number of tracked keys.
func (s *SlidingWindow) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attempts)
}

func (s *SlidingWindow) sweep(cutoff time.Time) {
	for k, ts := range s.attempts {
		if len(ts) == 0 || !ts[len(ts)-1].After(cutoff) {
			delete(s.attempts, k)
		}
	}
}

// pruneBefore drops timestamps at or before cutoff. ts is in ascending order.
func pruneBefore(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}
	out := make([]time.Time, len(ts)-i)
	copy(out, ts[i:])
	return out
}
