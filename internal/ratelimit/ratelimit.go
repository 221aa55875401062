// Package ratelimit holds process-local window limiters keyed by caller identity.
//
// State lives in this process only. Behind a load balancer each replica
// enforces its own limit; a shared counter store would sit behind the same
// Limiter interface.
package ratelimit

import "time"

type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds up so clients never retry early.
func (d Decision) RetryAfterSeconds() int {
	if d.Allowed || d.RetryAfter <= 0 {
		return 0
	}
	s := int(d.RetryAfter / time.Second)
	if d.RetryAfter%time.Second != 0 {
		s++
	}
	return s
}

type Limiter interface {
	Allow(key string) bool
	Decide(key string) Decision
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}
