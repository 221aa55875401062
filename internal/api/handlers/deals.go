package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/catalog"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/query"
)

type DealsHandler struct {
	Query              *query.Service
	DefaultMinDiscount int
}

func (h DealsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	req := query.ParseRequest(r.URL.Query(), h.DefaultMinDiscount)

	res, err := h.Query.Search(r.Context(), req)
	if err != nil {
		writeServerError(w, r, http.StatusInternalServerError, "search_failed", "could not load deals", err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// DealDetailHandler serves GET /api/deals/{id}.
type DealDetailHandler struct {
	Query *query.Service
}

func (h DealDetailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_id", "deal id missing")
		return
	}

	d, err := h.Query.Get(r.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "deal not found")
		return
	}
	if err != nil {
		writeServerError(w, r, http.StatusInternalServerError, "get_deal_failed", "could not load deal", err)
		return
	}

	writeJSON(w, http.StatusOK, d)
}
