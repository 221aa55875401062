package middleware

import (
	"crypto/rsa"
	"crypto/subtle"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/api/auth"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/api/requestctx"
)

// AdminKeyParam carries the shared secret. URLs end up in access logs, so
// the bearer token is the preferred credential when a public key is configured.
const AdminKeyParam = "key"

const adminKeySubject = "key"

// AdminAuthMiddleware accepts ?key=<secret> or an RS256 admin bearer token.
// No credential is 401; a wrong one is 403.
type AdminAuthMiddleware struct {
	Secret    string
	PublicKey *rsa.PublicKey
	Logger    *zap.Logger
	Next      http.Handler
}

func (m AdminAuthMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if m.Next == nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	key := r.URL.Query().Get(AdminKeyParam)

	switch {
	case strings.HasPrefix(authz, "Bearer "):
		tokenString := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
		if tokenString == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "empty bearer token")
			return
		}
		if m.PublicKey == nil {
			writeError(w, http.StatusForbidden, "forbidden", "bearer tokens are not enabled")
			return
		}
		claims, err := auth.ParseAndValidateRS256(tokenString, m.PublicKey)
		if err != nil {
			m.logger().Warn("admin token rejected", zap.Error(err), zap.String("ip", requestctx.ClientIP(r.Context())))
			writeError(w, http.StatusForbidden, "forbidden", "invalid token")
			return
		}
		m.Next.ServeHTTP(w, r.WithContext(requestctx.WithAdmin(r.Context(), claims.Subject)))

	case key != "":
		if m.Secret == "" || subtle.ConstantTimeCompare([]byte(key), []byte(m.Secret)) != 1 {
			m.logger().Warn("admin key rejected", zap.String("ip", requestctx.ClientIP(r.Context())))
			writeError(w, http.StatusForbidden, "forbidden", "invalid credential")
			return
		}
		m.Next.ServeHTTP(w, r.WithContext(requestctx.WithAdmin(r.Context(), adminKeySubject)))

	default:
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing credential")
	}
}

func (m AdminAuthMiddleware) logger() *zap.Logger {
	if m.Logger == nil {
		return zap.NewNop()
	}
	return m.Logger
}
