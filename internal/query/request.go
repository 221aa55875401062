package query

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/catalog"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/domain"
)

type SortKey string

const (
	SortDiscount  SortKey = "discount"
	SortPriceAsc  SortKey = "price_asc"
	SortPriceDesc SortKey = "price_desc"
	SortNewest    SortKey = "newest"
	SortName      SortKey = "name"
)

func (k SortKey) Valid() bool {
	switch k {
	case SortDiscount, SortPriceAsc, SortPriceDesc, SortNewest, SortName:
		return true
	default:
		return false
	}
}

const (
	DefaultLimit = 24
	MaxLimit     = 100
)

type Request struct {
	Filter catalog.DealFilter
	SortBy SortKey
	Page   int
	Limit  int
}

// ParseRequest builds a Request from query parameters. It never fails:
// unknown stores, genders and sort keys are dropped, malformed numbers fall
// back to defaults. minDiscount falls back to defaultMinDiscount.
func ParseRequest(v url.Values, defaultMinDiscount int) Request {
	req := Request{
		SortBy: SortDiscount,
		Page:   1,
		Limit:  DefaultLimit,
	}

	f := &req.Filter
	f.Search = strings.TrimSpace(v.Get("search"))
	f.Brands = list(v, "brands")
	f.Categories = list(v, "categories")
	f.CategoryPaths = list(v, "categoryPaths")
	f.Sizes = list(v, "sizes")

	for _, raw := range list(v, "stores") {
		if s, ok := domain.ParseStore(raw); ok {
			f.Stores = append(f.Stores, s)
		}
	}
	for _, raw := range list(v, "genders") {
		if g, ok := domain.ParseGender(raw); ok {
			f.Genders = append(f.Genders, g)
		}
	}

	f.MinDiscount = defaultMinDiscount
	if n, ok := nonNegative(v.Get("minDiscount")); ok {
		f.MinDiscount = n
	}
	if n, ok := nonNegative(v.Get("minPrice")); ok {
		f.MinPrice = n
	}
	if n, ok := nonNegative(v.Get("maxPrice")); ok {
		f.MaxPrice = &n
	}

	if k := SortKey(strings.ToLower(strings.TrimSpace(v.Get("sortBy")))); k.Valid() {
		req.SortBy = k
	}
	if n, ok := nonNegative(v.Get("page")); ok && n > 0 {
		req.Page = n
	}
	if n, ok := nonNegative(v.Get("limit")); ok && n > 0 {
		req.Limit = n
	}

	return req.normalized()
}

func (r Request) normalized() Request {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.Limit < 1 {
		r.Limit = DefaultLimit
	}
	if r.Limit > MaxLimit {
		r.Limit = MaxLimit
	}
	if !r.SortBy.Valid() {
		r.SortBy = SortDiscount
	}
	if r.Filter.MinDiscount < 0 {
		r.Filter.MinDiscount = 0
	}
	return r
}

// list splits comma-joined values. Repeated parameters are merged.
func list(v url.Values, key string) []string {
	var out []string
	for _, raw := range v[key] {
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func nonNegative(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
