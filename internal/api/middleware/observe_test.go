package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/logging"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/metrics"
)

func TestObserve_LogsAndCounts(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	m := metrics.New()

	var sawLogger bool
	h := Observe{
		Route:   "GET /api/deals/{id}",
		Logger:  zap.New(core),
		Metrics: m,
		Next: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sawLogger = logging.FromContext(r.Context()) != nil
			w.WriteHeader(http.StatusNotFound)
		}),
	}

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/deals/x", nil))

	if !sawLogger {
		t.Fatalf("expected request logger in context")
	}
	if got := testutil.ToFloat64(m.RequestCounter.WithLabelValues("GET", "GET /api/deals/{id}", "404")); got != 1 {
		t.Fatalf("expected 1 counted request, got %v", got)
	}
	entries := logs.FilterMessage("request").All()
	if len(entries) != 1 || entries[0].Level != zap.WarnLevel {
		t.Fatalf("expected one warn-level request log, got %+v", entries)
	}
}
