package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/logging"
)

const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]any{
		"error":   code,
		"message": msg,
	})
}

// writeServerError logs err and answers with msg only, keeping driver and
// network details out of the response.
func writeServerError(w http.ResponseWriter, r *http.Request, status int, code, msg string, err error) {
	logging.FromContext(r.Context()).Error(msg, zap.String("code", code), zap.Error(err))
	writeError(w, status, code, msg)
}

// decodeJSON reads one JSON object from a size-capped body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	return nil
}

// bulkRequest is the body shared by the admin bulk endpoints.
type bulkRequest struct {
	IDs  []string `json:"ids"`
	All  bool     `json:"all"`
	Read *bool    `json:"read,omitempty"`
}

func (b bulkRequest) cleanIDs() []string {
	out := make([]string, 0, len(b.IDs))
	seen := make(map[string]struct{}, len(b.IDs))
	for _, id := range b.IDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
