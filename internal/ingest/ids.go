package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/domain"
)

type IDMode string

const (
	// IDModeSource keeps the scraper's id. Scraper ids embed the scrape time,
	// so a re-scraped product lands under a new id.
	IDModeSource IDMode = "source"
	// IDModeStable derives the id from store and normalized URL so re-scrapes overwrite.
	IDModeStable IDMode = "stable"
)

func ParseIDMode(raw string) IDMode {
	if IDMode(strings.ToLower(strings.TrimSpace(raw))) == IDModeStable {
		return IDModeStable
	}
	return IDModeSource
}

const maxSlugLen = 180

// ResolveID picks the catalog id for d according to mode.
func ResolveID(mode IDMode, d domain.Deal, now time.Time) string {
	if mode == IDModeStable {
		return StableID(d.Store, d.URL)
	}
	if d.ID != "" {
		return d.ID
	}
	return LegacyID(d.Store, d.URL, now)
}

// LegacyID reproduces the scraper scheme: <store>-<urlslug>-<unixmillis>.
func LegacyID(store domain.StoreID, rawURL string, at time.Time) string {
	slug := ""
	if u, err := url.Parse(rawURL); err == nil {
		segs := strings.Split(strings.Trim(u.Path, "/"), "/")
		slug = Slugify(segs[len(segs)-1])
	}
	if slug == "" {
		slug = "item"
	}
	return string(store) + "-" + slug + "-" + strconv.FormatInt(at.UnixMilli(), 10)
}

func StableID(store domain.StoreID, rawURL string) string {
	return string(store) + "-" + capSlug(Slugify(NormalizeURL(rawURL)))
}

// NormalizeURL lowercases the host and drops scheme, query, fragment and trailing slash.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimSpace(rawURL))
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	return host + strings.TrimRight(u.Path, "/")
}

// Slugify lowercases s and collapses every run of non-alphanumerics into one dash.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

func capSlug(slug string) string {
	if len(slug) <= maxSlugLen {
		return slug
	}
	sum := sha256.Sum256([]byte(slug))
	return strings.TrimRight(slug[:maxSlugLen-13], "-") + "-" + hex.EncodeToString(sum[:])[:12]
}
