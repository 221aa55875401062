package ingest

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// RawDeal is one listing as the scraper wrote it. Fields are decoded lazily by ParseDeal.
type RawDeal map[string]json.RawMessage

// Batch is the per-source scraper output: {store, deals[], totalScraped, filteredCount, scrapedAt, errors[]}.
type Batch struct {
	Store         string     `json:"store"`
	Deals         []RawDeal  `json:"deals"`
	TotalScraped  int        `json:"totalScraped"`
	FilteredCount int        `json:"filteredCount"`
	ScrapedAt     *time.Time `json:"scrapedAt"`
	Errors        []string   `json:"errors"`

	Warnings UnknownKeyWarning `json:"-"`
}

type UnknownKeyWarning struct {
	UnknownKeys []string `json:"unknownKeys"`
}

var ErrEmptyBatch = errors.New("empty batch body")

var gzipMagic = []byte{0x1f, 0x8b}

// ParseBatch decodes a whole batch file. Gzip input is detected by its magic bytes.
func ParseBatch(body []byte) (Batch, error) {
	if bytes.HasPrefix(body, gzipMagic) {
		gr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return Batch{}, fmt.Errorf("gzip: %w", err)
		}
		defer gr.Close()

		body, err = io.ReadAll(gr)
		if err != nil {
			return Batch{}, fmt.Errorf("gzip: %w", err)
		}
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return Batch{}, ErrEmptyBatch
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return Batch{}, fmt.Errorf("decode batch: %w", err)
	}

	var b Batch
	if err := json.Unmarshal(body, &b); err != nil {
		return Batch{}, fmt.Errorf("decode batch: %w", err)
	}
	if b.Deals == nil {
		b.Deals = []RawDeal{}
	}
	if b.Errors == nil {
		b.Errors = []string{}
	}

	unknown := make(map[string]struct{})
	for k := range top {
		if _, ok := knownBatchKeys[k]; !ok {
			unknown[k] = struct{}{}
		}
	}
	for _, d := range b.Deals {
		for k := range d {
			if _, ok := knownDealKeys[k]; !ok {
				unknown["deals[]."+strings.TrimSpace(k)] = struct{}{}
			}
		}
	}
	b.Warnings = UnknownKeyWarning{UnknownKeys: setToSortedSlice(unknown)}

	return b, nil
}

// ReadBatch reads r to EOF before decoding; nothing is imported from a partial file.
func ReadBatch(r io.Reader) (Batch, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return Batch{}, err
	}
	return ParseBatch(body)
}

var knownBatchKeys = map[string]struct{}{
	"store":         {},
	"deals":         {},
	"totalScraped":  {},
	"filteredCount": {},
	"scrapedAt":     {},
	"errors":        {},
}

var knownDealKeys = map[string]struct{}{
	"id":               {},
	"store":            {},
	"name":             {},
	"brand":            {},
	"description":      {},
	"originalPrice":    {},
	"salePrice":        {},
	"discountPercent":  {},
	"url":              {},
	"imageUrl":         {},
	"detailImageUrl":   {},
	"sizes":            {},
	"categories":       {},
	"gender":           {},
	"scrapedAt":        {},
	"detailsScrapedAt": {},
}

func setToSortedSlice(set map[string]struct{}) []string {
	if len(set) == 0 {
		return []string{}
	}

	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
