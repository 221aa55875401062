package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/catalog"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/logging"
)

// AdminDealsHandler serves DELETE /api/admin/deals with {"ids":[...]} or {"all":true}.
type AdminDealsHandler struct {
	Store catalog.DealStore
}

func (h AdminDealsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var body bulkRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	var (
		n   int
		err error
	)
	ids := body.cleanIDs()
	switch {
	case body.All:
		n, err = h.Store.DeleteAllDeals(r.Context())
	case len(ids) > 0:
		n, err = h.Store.DeleteDeals(r.Context(), ids)
	default:
		writeError(w, http.StatusBadRequest, "missing_ids", "send ids or all=true")
		return
	}
	if err != nil {
		writeServerError(w, r, http.StatusInternalServerError, "delete_deals_failed", "could not delete deals", err)
		return
	}

	logging.FromContext(r.Context()).Info("deals deleted", zap.Int("count", n), zap.Bool("all", body.All))
	writeJSON(w, http.StatusOK, map[string]any{"deleted": n})
}
