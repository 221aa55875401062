package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/api/requestctx"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/logging"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/metrics"
)

// Observe logs and counts every request under a fixed route label.
type Observe struct {
	Route   string
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Next    http.Handler
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

func (m Observe) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if m.Next == nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	logger := m.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	reqLogger := logger.With(
		zap.String("route", m.Route),
		zap.String("ip", requestctx.ClientIP(r.Context())),
	)

	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w}
	m.Next.ServeHTTP(rec, r.WithContext(logging.WithLogger(r.Context(), reqLogger)))

	status := rec.status
	if status == 0 {
		status = http.StatusOK
	}
	elapsed := time.Since(start)

	m.Metrics.ObserveRequest(r.Method, m.Route, status, elapsed)

	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.Int("status", status),
		zap.Int("bytes", rec.bytes),
		zap.Duration("duration", elapsed),
	}
	switch {
	case status >= 500:
		reqLogger.Error("request", fields...)
	case status >= 400:
		reqLogger.Warn("request", fields...)
	default:
		reqLogger.Debug("request", fields...)
	}
}
