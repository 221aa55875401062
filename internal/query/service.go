package query

import (
	"context"
	"sort"
	"strings"

	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/catalog"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/domain"
)

type Finder interface {
	FindDeals(ctx context.Context, f catalog.DealFilter) ([]domain.Deal, error)
	GetDeal(ctx context.Context, id string) (domain.Deal, error)
}

type FacetValue struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type PriceRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Facets are computed over the whole filtered set. A dimension's counts
// include its own filter, so selecting one store yields a single store facet.
type Facets struct {
	Brands     []FacetValue `json:"brands"`
	Stores     []FacetValue `json:"stores"`
	Genders    []FacetValue `json:"genders"`
	PriceRange PriceRange   `json:"priceRange"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type Result struct {
	Deals      []domain.Deal `json:"deals"`
	Pagination Pagination    `json:"pagination"`
	Filters    Facets        `json:"filters"`
}

// Service is read-only over the catalog.
type Service struct {
	Finder Finder
}

func NewService(f Finder) *Service {
	return &Service{Finder: f}
}

func (s *Service) Search(ctx context.Context, req Request) (Result, error) {
	req = req.normalized()

	matched, err := s.Finder.FindDeals(ctx, req.Filter)
	if err != nil {
		return Result{}, err
	}

	facets := ComputeFacets(matched)

	SortDeals(matched, req.SortBy)

	total := len(matched)
	totalPages := (total + req.Limit - 1) / req.Limit

	start := (req.Page - 1) * req.Limit
	page := []domain.Deal{}
	if start < total {
		end := start + req.Limit
		if end > total {
			end = total
		}
		page = matched[start:end]
	}

	return Result{
		Deals: page,
		Pagination: Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
		},
		Filters: facets,
	}, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Deal, error) {
	return s.Finder.GetDeal(ctx, id)
}

// ComputeFacets counts brands, stores and genders and the salePrice range.
// Deals without a brand are counted under the empty brand name so every
// dimension sums to the number of deals.
func ComputeFacets(deals []domain.Deal) Facets {
	brands := map[string]int{}
	stores := map[string]int{}
	genders := map[string]int{}

	var pr PriceRange
	for i, d := range deals {
		brands[d.BrandName()]++
		stores[string(d.Store)]++
		genders[string(d.Gender)]++

		if i == 0 || d.SalePrice < pr.Min {
			pr.Min = d.SalePrice
		}
		if i == 0 || d.SalePrice > pr.Max {
			pr.Max = d.SalePrice
		}
	}

	return Facets{
		Brands:     facetList(brands),
		Stores:     facetList(stores),
		Genders:    facetList(genders),
		PriceRange: pr,
	}
}

func facetList(m map[string]int) []FacetValue {
	out := make([]FacetValue, 0, len(m))
	for k, n := range m {
		out = append(out, FacetValue{Name: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// SortDeals orders deals in place by key, breaking ties on id.
func SortDeals(deals []domain.Deal, key SortKey) {
	sort.SliceStable(deals, func(i, j int) bool {
		a, b := deals[i], deals[j]
		switch key {
		case SortPriceAsc:
			if a.SalePrice != b.SalePrice {
				return a.SalePrice < b.SalePrice
			}
		case SortPriceDesc:
			if a.SalePrice != b.SalePrice {
				return a.SalePrice > b.SalePrice
			}
		case SortNewest:
			if !a.ScrapedAt.Equal(b.ScrapedAt) {
				return a.ScrapedAt.After(b.ScrapedAt)
			}
		case SortName:
			an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
			if an != bn {
				return an < bn
			}
		default:
			if a.DiscountPercent != b.DiscountPercent {
				return a.DiscountPercent > b.DiscountPercent
			}
		}
		return a.ID < b.ID
	})
}
