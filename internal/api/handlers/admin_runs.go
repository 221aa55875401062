package handlers

import (
	"net/http"

	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/catalog"
)

type AdminRunsHandler struct {
	Store catalog.RunStore
}

func (h AdminRunsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	limit := queryInt(r, "limit", 50, 1, 200)

	runs, err := h.Store.ListScrapeRuns(r.Context(), limit)
	if err != nil {
		writeServerError(w, r, http.StatusInternalServerError, "list_runs_failed", "could not list runs", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": runs,
	})
}
