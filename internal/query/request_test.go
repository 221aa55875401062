package query

import (
	"net/url"
	"testing"

	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/domain"
)

func TestParseRequest_DropsUnknownEnums(t *testing.T) {
	v, _ := url.ParseQuery("stores=buzz,amazon,PLANETA&genders=female,alien&sortBy=random&brands=Nike,,Adidas")
	req := ParseRequest(v, 50)

	if len(req.Filter.Stores) != 2 || req.Filter.Stores[0] != domain.StoreBuzz || req.Filter.Stores[1] != domain.StorePlaneta {
		t.Fatalf("unexpected stores: %#v", req.Filter.Stores)
	}
	if len(req.Filter.Genders) != 1 || req.Filter.Genders[0] != domain.GenderFemale {
		t.Fatalf("unexpected genders: %#v", req.Filter.Genders)
	}
	if req.SortBy != SortDiscount {
		t.Fatalf("expected default sort, got %q", req.SortBy)
	}
	if len(req.Filter.Brands) != 2 {
		t.Fatalf("unexpected brands: %#v", req.Filter.Brands)
	}
}

func TestParseRequest_Defaults(t *testing.T) {
	req := ParseRequest(url.Values{}, 50)

	if req.Page != 1 || req.Limit != DefaultLimit {
		t.Fatalf("unexpected paging: page=%d limit=%d", req.Page, req.Limit)
	}
	if req.Filter.MinDiscount != 50 {
		t.Fatalf("expected default floor, got %d", req.Filter.MinDiscount)
	}
}

func TestParseRequest_NumericBounds(t *testing.T) {
	v, _ := url.ParseQuery("minDiscount=0&minPrice=-3&maxPrice=9000&page=0&limit=500&sortBy=price_asc")
	req := ParseRequest(v, 50)

	if req.Filter.MinDiscount != 0 {
		t.Fatalf("explicit 0 must be honored, got %d", req.Filter.MinDiscount)
	}
	if req.Filter.MinPrice != 0 || req.Filter.MaxPrice == nil || *req.Filter.MaxPrice != 9000 {
		t.Fatalf("unexpected price bounds: %+v", req.Filter)
	}
	if req.Page != 1 || req.Limit != MaxLimit {
		t.Fatalf("unexpected paging: page=%d limit=%d", req.Page, req.Limit)
	}
	if req.SortBy != SortPriceAsc {
		t.Fatalf("unexpected sort %q", req.SortBy)
	}
}

func TestParseRequest_MaxPriceZeroIsABound(t *testing.T) {
	v, _ := url.ParseQuery("maxPrice=0")
	req := ParseRequest(v, 50)
	if req.Filter.MaxPrice == nil || *req.Filter.MaxPrice != 0 {
		t.Fatalf("expected maxPrice=0 to be kept, got %v", req.Filter.MaxPrice)
	}

	req = ParseRequest(url.Values{}, 50)
	if req.Filter.MaxPrice != nil {
		t.Fatalf("expected no upper bound, got %d", *req.Filter.MaxPrice)
	}
}

func TestParseRequest_RepeatedParamsMerge(t *testing.T) {
	v, _ := url.ParseQuery("sizes=42&sizes=43,44")
	req := ParseRequest(v, 0)
	if len(req.Filter.Sizes) != 3 {
		t.Fatalf("expected merged sizes, got %#v", req.Filter.Sizes)
	}
}
