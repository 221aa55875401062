package handlers

import (
	"bytes"
	"compress/gzip"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/gatekeeper"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake-image-bytes")

// newProxyUnderTest routes every outbound connection to upstream so that
// allow-listed hostnames resolve to the local test server.
func newProxyUnderTest(t *testing.T, upstream *httptest.Server) ImageProxyHandler {
	t.Helper()
	h := NewImageProxyHandler(gatekeeper.New([]string{"*.shop.rs"}), 2*time.Second, nil)
	addr := upstream.Listener.Addr().String()
	h.Client.Transport = &http.Transport{
		DialContext: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, addr)
		},
		DisableCompression: true,
	}
	return h
}

func proxyGet(h http.Handler, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/image?url="+target, nil))
	return rr
}

func TestImageProxy_RelaysAndDecodes(t *testing.T) {
	var gotReferer, gotUA string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReferer = r.Header.Get("Referer")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "image/png")
		switch r.URL.Path {
		case "/gz.png":
			w.Header().Set("Content-Encoding", "gzip")
			zw := gzip.NewWriter(w)
			_, _ = zw.Write(pngBytes)
			_ = zw.Close()
		case "/br.png":
			w.Header().Set("Content-Encoding", "br")
			bw := brotli.NewWriter(w)
			_, _ = bw.Write(pngBytes)
			_ = bw.Close()
		default:
			_, _ = w.Write(pngBytes)
		}
	}))
	defer upstream.Close()

	h := newProxyUnderTest(t, upstream)

	for _, path := range []string{"/plain.png", "/gz.png", "/br.png"} {
		rr := proxyGet(h, "http://cdn.shop.rs"+path)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", path, rr.Code, rr.Body.String())
		}
		if !bytes.Equal(rr.Body.Bytes(), pngBytes) {
			t.Fatalf("%s: expected decoded image bytes, got %q", path, rr.Body.Bytes())
		}
		if rr.Header().Get("Content-Type") != "image/png" {
			t.Fatalf("%s: expected image/png, got %q", path, rr.Header().Get("Content-Type"))
		}
		if rr.Header().Get("Cache-Control") != imageCacheHeader {
			t.Fatalf("%s: expected cache header, got %q", path, rr.Header().Get("Cache-Control"))
		}
	}

	if gotReferer != "" {
		t.Fatalf("expected no Referer upstream, got %q", gotReferer)
	}
	if gotUA != browserUserAgent {
		t.Fatalf("expected browser user agent, got %q", gotUA)
	}
}

func TestImageProxy_Rejections(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("upstream must not be contacted, got %s", r.URL)
	}))
	defer upstream.Close()

	h := newProxyUnderTest(t, upstream)

	cases := []struct {
		name   string
		target string
		want   int
	}{
		{"missing url", "", http.StatusBadRequest},
		{"foreign host", "https://evil.com/x.png", http.StatusForbidden},
		{"lookalike host", "https://evilshop.rs/x.png", http.StatusForbidden},
		{"bad scheme", "ftp://cdn.shop.rs/x.png", http.StatusForbidden},
		{"ip literal", "http://127.0.0.1/x.png", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rr := proxyGet(h, tc.target); rr.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rr.Code)
			}
		})
	}
}

func TestImageProxy_UpstreamStatusPassthrough(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer upstream.Close()

	rr := proxyGet(newProxyUnderTest(t, upstream), "http://img.shop.rs/missing.png")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 passthrough, got %d", rr.Code)
	}
}

func TestImageProxy_RedirectOffListIsRefused(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://evil.com/steal", http.StatusFound)
	}))
	defer upstream.Close()

	rr := proxyGet(newProxyUnderTest(t, upstream), "http://cdn.shop.rs/x.png")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for refused redirect, got %d", rr.Code)
	}
}

func TestImageProxy_GivesUpAfterTimeout(t *testing.T) {
	release := make(chan struct{})
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer upstream.Close()
	defer close(release)

	h := newProxyUnderTest(t, upstream)
	h.Timeout = 50 * time.Millisecond

	start := time.Now()
	rr := proxyGet(h, "http://cdn.shop.rs/slow.png")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after timeout, got %d", rr.Code)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("expected the relay to give up near its timeout, took %s", elapsed)
	}
}

func TestImageProxy_RejectsOversizedImages(t *testing.T) {
	big := bytes.Repeat([]byte("x"), 1024)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		if r.URL.Path == "/gz.png" {
			// Compressed and chunked: no usable Content-Length.
			w.Header().Set("Content-Encoding", "gzip")
			zw := gzip.NewWriter(w)
			_, _ = zw.Write(big)
			_ = zw.Close()
			return
		}
		_, _ = w.Write(big)
	}))
	defer upstream.Close()

	h := newProxyUnderTest(t, upstream)
	h.MaxBytes = 512

	for _, path := range []string{"/plain.png", "/gz.png"} {
		rr := proxyGet(h, "http://cdn.shop.rs"+path)
		if rr.Code != http.StatusInternalServerError {
			t.Fatalf("%s: expected 500 for oversized image, got %d", path, rr.Code)
		}
	}

	h.MaxBytes = int64(len(big))
	if rr := proxyGet(h, "http://cdn.shop.rs/plain.png"); rr.Code != http.StatusOK || rr.Body.Len() != len(big) {
		t.Fatalf("expected image at the cap to pass, got %d with %d bytes", rr.Code, rr.Body.Len())
	}
}
