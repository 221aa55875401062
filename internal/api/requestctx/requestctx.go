package requestctx

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type ctxKeyClientIP struct{}
type ctxKeyAdmin struct{}

const UnknownClientIP = "unknown"

func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyClientIP{}, ip)
}

func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ctxKeyClientIP{}).(string); ok && ip != "" {
		return ip
	}
	return UnknownClientIP
}

// WithAdmin records who passed admin auth ("key" or a token subject).
func WithAdmin(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, ctxKeyAdmin{}, subject)
}

func Admin(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(ctxKeyAdmin{}).(string)
	return s, ok && s != ""
}

// IPFromRequest uses the first X-Forwarded-For hop only when trustProxy is set;
// the header is client-controlled otherwise.
func IPFromRequest(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first := strings.TrimSpace(strings.Split(xff, ",")[0])
			if net.ParseIP(first) != nil {
				return first
			}
		}
		if xr := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xr) != nil {
			return xr
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "" {
		return UnknownClientIP
	}
	return host
}
