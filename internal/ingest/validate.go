package ingest

import (
	"bytes"
	"encoding/json"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/domain"
)

type ValidationIssue struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationResult struct {
	Issues []ValidationIssue `json:"issues"`
}

func (r ValidationResult) IsValid() bool {
	return len(r.Issues) == 0
}

// ParseDeal turns a raw listing into a typed Deal for store. The listing's own
// store field is ignored; the batch decides. Id resolution happens later.
// discountPercent is always derived from the prices.
func ParseDeal(raw RawDeal, store domain.StoreID, batchScrapedAt time.Time) (domain.Deal, ValidationResult) {
	var res ValidationResult

	d := domain.Deal{
		Store:      store,
		Sizes:      []string{},
		Categories: []string{},
		Gender:     domain.GenderUnisex,
		ScrapedAt:  batchScrapedAt.UTC(),
	}

	d.ID = strings.TrimSpace(stringField(&res, raw, "id"))
	d.Name = strings.TrimSpace(stringField(&res, raw, "name"))
	requireNonEmpty(&res, "name", d.Name)

	d.Brand = optionalString(&res, raw, "brand")
	d.Description = optionalString(&res, raw, "description")
	d.ImageURL = optionalString(&res, raw, "imageUrl")
	d.DetailImageURL = optionalString(&res, raw, "detailImageUrl")

	d.URL = strings.TrimSpace(stringField(&res, raw, "url"))
	requireNonEmpty(&res, "url", d.URL)
	if d.URL != "" && !isHTTPURL(d.URL) {
		addIssue(&res, "url", "invalid_url", "url must be an absolute http(s) URL")
	}

	d.OriginalPrice = priceField(&res, raw, "originalPrice")
	d.SalePrice = priceField(&res, raw, "salePrice")
	d.DiscountPercent = domain.DiscountPercent(d.OriginalPrice, d.SalePrice)

	d.Sizes = tokenList(raw, "sizes")
	d.Categories = tokenList(raw, "categories")

	// Anything that is not a known gender string falls back to unisex.
	if v, ok := looseString(raw, "gender"); ok {
		d.Gender = domain.NormalizeGender(v)
	}

	if t := timeField(&res, raw, "scrapedAt"); t != nil {
		d.ScrapedAt = *t
	}
	d.DetailsScrapedAt = timeField(&res, raw, "detailsScrapedAt")

	return d, res
}

func stringField(res *ValidationResult, raw RawDeal, key string) string {
	v, ok := raw[key]
	if !ok || isNull(v) {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		addIssue(res, key, "invalid_type", "must be a string")
		return ""
	}
	return s
}

// optionalString maps absent, null and blank values to nil.
func optionalString(res *ValidationResult, raw RawDeal, key string) *string {
	s := strings.TrimSpace(stringField(res, raw, key))
	if s == "" {
		return nil
	}
	return &s
}

// looseString reads key only when it holds a JSON string.
func looseString(raw RawDeal, key string) (string, bool) {
	v, ok := raw[key]
	if !ok || isNull(v) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", false
	}
	return s, true
}

func priceField(res *ValidationResult, raw RawDeal, key string) int {
	v, ok := raw[key]
	if !ok || isNull(v) {
		addIssue(res, key, "required", "field is required")
		return 0
	}

	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		addIssue(res, key, "invalid_price", "must be a number")
		return 0
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		addIssue(res, key, "invalid_price", "must be a non-negative number")
		return 0
	}
	return int(math.Round(f))
}

// tokenList keeps string and numeric items (shoe sizes often arrive as 42)
// and skips anything else. A lone string counts as a one-item list.
// The listing is never rejected over this field.
func tokenList(raw RawDeal, key string) []string {
	out := []string{}
	v, ok := raw[key]
	if !ok || isNull(v) {
		return out
	}

	var items []json.RawMessage
	if err := json.Unmarshal(v, &items); err != nil {
		items = []json.RawMessage{v}
	}

	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		it, ok := token(item)
		if !ok {
			continue
		}
		if _, dup := seen[it]; dup {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}

func token(v json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		s = strings.TrimSpace(s)
		return s, s != ""
	}

	dec := json.NewDecoder(bytes.NewReader(v))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return "", false
	}
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10), true
	}
	f, err := n.Float64()
	if err != nil {
		return "", false
	}
	return strconv.FormatFloat(f, 'f', -1, 64), true
}

func timeField(res *ValidationResult, raw RawDeal, key string) *time.Time {
	v, ok := raw[key]
	if !ok || isNull(v) {
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(v, &t); err != nil {
		addIssue(res, key, "invalid_timestamp", "must be an RFC 3339 timestamp")
		return nil
	}
	t = t.UTC()
	return &t
}

func isNull(v json.RawMessage) bool {
	return strings.TrimSpace(string(v)) == "null"
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func requireNonEmpty(res *ValidationResult, path string, v string) {
	if strings.TrimSpace(v) == "" {
		addIssue(res, path, "required", "field is required")
	}
}

func addIssue(res *ValidationResult, path string, code string, msg string) {
	res.Issues = append(res.Issues, ValidationIssue{
		Path:    path,
		Code:    code,
		Message: msg,
	})
}
