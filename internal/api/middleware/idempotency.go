package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/api/requestctx"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/catalog"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/logging"
	"go.uber.org/zap"
)

// HTTP header used for idempotent requests
const IdempotencyHeaderKey = "Idempotency-Key"

const idempotencyTTL = 24 * time.Hour

// IdempotencyMiddleware replays the stored status and body for a repeated
// Idempotency-Key. Keys are scoped per admin identity and path.
type IdempotencyMiddleware struct {
	Store catalog.IdempotencyStore
	Next  http.Handler
}

func (m IdempotencyMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if m.Next == nil || m.Store == nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		m.Next.ServeHTTP(w, r)
		return
	}

	idemKey := strings.TrimSpace(r.Header.Get(IdempotencyHeaderKey))
	if idemKey == "" {
		m.Next.ServeHTTP(w, r)
		return
	}

	endpoint := strings.TrimSpace(r.URL.Path)
	if endpoint == "" {
		endpoint = "/"
	}

	scope, _ := requestctx.Admin(r.Context())
	keyHash := catalog.HashIdempotencyKey(idemKey)

	rec, ok, err := m.Store.GetIdempotency(r.Context(), scope, endpoint, keyHash)
	if err != nil {
		logging.FromContext(r.Context()).Error("idempotency lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "idempotency_lookup_failed", "could not check idempotency key")
		return
	}

	if ok {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Idempotent-Replay", "true")

		status := rec.StatusCode
		if status == 0 {
			status = http.StatusOK
		}

		w.WriteHeader(status)
		_, _ = w.Write(rec.BodyJSON)
		return
	}

	rr := httptest.NewRecorder()
	m.Next.ServeHTTP(rr, r)

	for k, vals := range rr.Header() {
		for _, v := range vals {
			w.Header().Add(k, v)
		}
	}

	status := rr.Code
	if status == 0 {
		status = http.StatusOK
	}

	w.WriteHeader(status)
	_, _ = w.Write(rr.Body.Bytes())

	// Server errors are not cached so the client can retry with the same key.
	if status >= 500 {
		return
	}

	now := time.Now().UTC()
	err = m.Store.PutIdempotency(r.Context(), scope, endpoint, keyHash, catalog.IdempotencyRecord{
		StatusCode: status,
		BodyJSON:   rr.Body.Bytes(),
		CreatedAt:  now,
		ExpiresAt:  now.Add(idempotencyTTL),
	})
	if err != nil {
		// The response is already sent; a retry with this key re-runs the handler.
		logging.FromContext(r.Context()).Warn("idempotency record not saved",
			zap.Error(err), zap.String("endpoint", endpoint))
	}
}
