package middleware

import (
	"net/http"
	"strconv"

	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/api/requestctx"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/metrics"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/ratelimit"
)

// RateLimitMiddleware gates requests by client IP. It must run inside ClientIPMiddleware.
type RateLimitMiddleware struct {
	Name    string
	Limiter ratelimit.Limiter
	Metrics *metrics.Metrics
	Next    http.Handler
}

func (m RateLimitMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if m.Next == nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if m.Limiter == nil {
		m.Next.ServeHTTP(w, r)
		return
	}

	d := m.Limiter.Decide(requestctx.ClientIP(r.Context()))
	if !d.Allowed {
		m.Metrics.ObserveRateLimited(m.Name)
		w.Header().Set("Retry-After", strconv.Itoa(d.RetryAfterSeconds()))
		writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
		return
	}

	m.Next.ServeHTTP(w, r)
}
