package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/api/requestctx"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/contact"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/logging"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/metrics"
)

// ContactHandler answers a discarded bot submission exactly like a stored one.
type ContactHandler struct {
	Service *contact.Service
	Metrics *metrics.Metrics
}

func (h ContactHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var sub contact.Submission
	if err := decodeJSON(w, r, &sub); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"errors": []string{"invalid JSON body"},
		})
		return
	}

	_, _, err := h.Service.Submit(r.Context(), sub, requestctx.ClientIP(r.Context()))

	if re, ok := contact.IsRateLimited(err); ok {
		h.Metrics.ObserveRateLimited("contact")
		secs := re.RetryAfterSeconds()
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"errors":     []string{"too many messages, try again later"},
			"retryAfter": secs,
		})
		return
	}
	if ve, ok := contact.IsValidation(err); ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"errors": ve.Messages,
		})
		return
	}
	if err != nil {
		logging.FromContext(r.Context()).Error("contact submission failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"errors": []string{"could not send message"},
		})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"success": true})
}
