package handlers

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/ingest"
)

const maxBatchBody = 64 << 20

// AdminImportHandler accepts one scraper batch as the request body
// (optionally Content-Encoding: gzip) and imports it synchronously.
type AdminImportHandler struct {
	Importer *ingest.Importer
}

func (h AdminImportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	reader, err := wrapMaybeGzip(http.MaxBytesReader(w, r.Body, maxBatchBody), r.Header.Get("Content-Encoding"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_encoding", err.Error())
		return
	}
	defer reader.Close()

	batch, err := ingest.ReadBatch(reader)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_batch", err.Error())
		return
	}

	res, err := h.Importer.Import(r.Context(), batch)
	if errors.Is(err, ingest.ErrUnknownStore) {
		writeError(w, http.StatusUnprocessableEntity, "unknown_store", err.Error())
		return
	}
	if err != nil {
		writeServerError(w, r, http.StatusInternalServerError, "import_failed", "import failed", err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func wrapMaybeGzip(body io.ReadCloser, contentEncoding string) (io.ReadCloser, error) {
	enc := strings.ToLower(strings.TrimSpace(contentEncoding))
	if enc == "" || enc == "identity" {
		return body, nil
	}

	if enc != "gzip" {
		return nil, fmt.Errorf("unsupported Content-Encoding: %s", enc)
	}

	gr, err := gzip.NewReader(body)
	if err != nil {
		return nil, err
	}

	return readCloserChain{Reader: gr, Closers: []io.Closer{gr, body}}, nil
}

type readCloserChain struct {
	io.Reader
	Closers []io.Closer
}

func (r readCloserChain) Close() error {
	var firstErr error
	for _, c := range r.Closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
