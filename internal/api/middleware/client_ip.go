package middleware

import (
	"net/http"

	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/api/requestctx"
)

type ClientIPMiddleware struct {
	TrustProxy bool // honor X-Forwarded-For / X-Real-IP
	Next       http.Handler
}

func (m ClientIPMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if m.Next == nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	ip := requestctx.IPFromRequest(r, m.TrustProxy)
	m.Next.ServeHTTP(w, r.WithContext(requestctx.WithClientIP(r.Context(), ip)))
}
