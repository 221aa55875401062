package handlers

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"go.uber.org/zap"

	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/gatekeeper"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/logging"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/metrics"
)

const (
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	maxImageBytes    = 15 << 20
	imageCacheHeader = "public, max-age=86400"
)

// ImageProxyHandler relays allow-listed images for GET /api/image?url=.
// Upstream is fetched once without a Referer; redirects are re-checked
// against the allow-list. Bodies are buffered, so an image over MaxBytes
// fails instead of arriving truncated.
type ImageProxyHandler struct {
	Gate     *gatekeeper.Gatekeeper
	Client   *http.Client
	Timeout  time.Duration
	MaxBytes int64
	Metrics  *metrics.Metrics
}

func NewImageProxyHandler(gate *gatekeeper.Gatekeeper, timeout time.Duration, m *metrics.Metrics) ImageProxyHandler {
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("too many redirects")
			}
			if _, err := gate.Check(req.URL.String()); err != nil {
				return fmt.Errorf("redirect to %s: %w", req.URL.Host, err)
			}
			req.Header.Del("Referer")
			return nil
		},
	}
	return ImageProxyHandler{Gate: gate, Client: client, Timeout: timeout, MaxBytes: maxImageBytes, Metrics: m}
}

func (h ImageProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	raw := r.URL.Query().Get("url")
	if strings.TrimSpace(raw) == "" {
		h.Metrics.ObserveImageProxy("bad_request")
		writeError(w, http.StatusBadRequest, "missing_url", "url parameter is required")
		return
	}

	target, err := h.Gate.Check(raw)
	if err != nil {
		h.Metrics.ObserveImageProxy("forbidden")
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
		return
	}

	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	upReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		h.Metrics.ObserveImageProxy("error")
		writeError(w, http.StatusInternalServerError, "proxy_failed", "could not build upstream request")
		return
	}
	upReq.Header.Set("User-Agent", browserUserAgent)
	upReq.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	upReq.Header.Set("Accept-Encoding", "gzip, br")

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}

	log := logging.FromContext(r.Context())

	resp, err := client.Do(upReq)
	if gatekeeper.IsBlocked(err) {
		h.Metrics.ObserveImageProxy("forbidden")
		log.Info("image redirect blocked", zap.String("host", target.Host), zap.Error(err))
		writeError(w, http.StatusForbidden, "forbidden", "redirect target not allowed")
		return
	}
	if err != nil {
		h.Metrics.ObserveImageProxy("network_error")
		log.Warn("image fetch failed", zap.String("host", target.Host), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "proxy_failed", "failed to fetch image")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		h.Metrics.ObserveImageProxy("upstream_status")
		w.WriteHeader(resp.StatusCode)
		return
	}

	limit := h.MaxBytes
	if limit <= 0 {
		limit = maxImageBytes
	}
	if resp.ContentLength > limit {
		h.Metrics.ObserveImageProxy("too_large")
		writeError(w, http.StatusInternalServerError, "proxy_failed", "image too large")
		return
	}

	decoded, err := decodeBody(resp.Body, resp.Header.Get("Content-Encoding"))
	if err != nil {
		h.Metrics.ObserveImageProxy("error")
		log.Warn("image decode failed", zap.String("host", target.Host), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "proxy_failed", "failed to decode image")
		return
	}
	defer decoded.Close()

	// Read one byte past the cap so a truncated image is never served as 200.
	body, err := io.ReadAll(io.LimitReader(decoded, limit+1))
	if err != nil {
		h.Metrics.ObserveImageProxy("network_error")
		log.Warn("image read failed", zap.String("host", target.Host), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "proxy_failed", "failed to fetch image")
		return
	}
	if int64(len(body)) > limit {
		h.Metrics.ObserveImageProxy("too_large")
		writeError(w, http.StatusInternalServerError, "proxy_failed", "image too large")
		return
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Cache-Control", imageCacheHeader)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)

	h.Metrics.ObserveImageProxy("ok")
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(body); err != nil {
		log.Debug("image write interrupted", zap.Error(err))
	}
}

// decodeBody undoes gzip or brotli. Closing the result does not close body.
func decodeBody(body io.Reader, contentEncoding string) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "", "identity":
		return io.NopCloser(body), nil
	case "gzip":
		gr, err := gzip.NewReader(body)
		if err != nil {
			return nil, err
		}
		return gr, nil
	case "br":
		return io.NopCloser(brotli.NewReader(body)), nil
	default:
		return nil, fmt.Errorf("unsupported Content-Encoding: %s", contentEncoding)
	}
}
