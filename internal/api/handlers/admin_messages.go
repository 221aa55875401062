package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/catalog"
)

// AdminMessagesHandler serves the contact inbox:
//
//	GET    /api/admin/messages?page=&limit=
//	POST   /api/admin/messages/read   {"ids":[...], "read":true|false}
//	DELETE /api/admin/messages        {"ids":[...]} | {"all":true}
type AdminMessagesHandler struct {
	Store catalog.MessageStore
}

func (h AdminMessagesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet:
		h.list(w, r)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/read"):
		h.markRead(w, r)
	case r.Method == http.MethodDelete:
		h.delete(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h AdminMessagesHandler) list(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1, 1, 1<<20)
	limit := queryInt(r, "limit", 50, 1, 200)

	res, err := h.Store.ListMessages(r.Context(), (page-1)*limit, limit)
	if err != nil {
		writeServerError(w, r, http.StatusInternalServerError, "list_messages_failed", "could not list messages", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"messages": res.Messages,
		"unread":   res.Unread,
		"pagination": map[string]any{
			"page":       page,
			"limit":      limit,
			"total":      res.Total,
			"totalPages": (res.Total + limit - 1) / limit,
		},
	})
}

func (h AdminMessagesHandler) markRead(w http.ResponseWriter, r *http.Request) {
	var body bulkRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	ids := body.cleanIDs()
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, "missing_ids", "ids must be a non-empty array")
		return
	}
	read := true
	if body.Read != nil {
		read = *body.Read
	}

	n, err := h.Store.MarkMessagesRead(r.Context(), ids, read)
	if err != nil {
		writeServerError(w, r, http.StatusInternalServerError, "mark_read_failed", "could not mark messages read", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"updated": n})
}

func (h AdminMessagesHandler) delete(w http.ResponseWriter, r *http.Request) {
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
		n, err = h.Store.DeleteAllMessages(r.Context())
	case len(ids) > 0:
		n, err = h.Store.DeleteMessages(r.Context(), ids)
	default:
		writeError(w, http.StatusBadRequest, "missing_ids", "send ids or all=true")
		return
	}
	if err != nil {
		writeServerError(w, r, http.StatusInternalServerError, "delete_messages_failed", "could not delete messages", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"deleted": n})
}

func queryInt(r *http.Request, key string, def, min, max int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < min {
		return def
	}
	if n > max {
		return max
	}
	return n
}
