package catalog

import (
	"strings"

	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/domain"
)

// DealFilter narrows the catalog. Empty lists mean "no constraint". Prices and
// discounts are never negative, so a zero lower bound already admits everything.
// A nil MaxPrice means no upper bound, while zero is a bound.
// Lists are OR within a field and AND across fields.
type DealFilter struct {
	Search        string
	Stores        []domain.StoreID
	Brands        []string
	Genders       []domain.Gender
	Categories    []string
	CategoryPaths []string
	Sizes         []string
	MinDiscount   int
	MinPrice      int
	MaxPrice      *int
}

func (f DealFilter) Match(d domain.Deal) bool {
	if f.MinDiscount > 0 && d.DiscountPercent < f.MinDiscount {
		return false
	}
	if f.MinPrice > 0 && d.SalePrice < f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && d.SalePrice > *f.MaxPrice {
		return false
	}

	if len(f.Stores) > 0 && !containsStore(f.Stores, d.Store) {
		return false
	}
	if len(f.Genders) > 0 && !containsGender(f.Genders, d.Gender) {
		return false
	}
	if len(f.Brands) > 0 && !containsFold(f.Brands, d.BrandName()) {
		return false
	}
	if len(f.Categories) > 0 && !overlapsFold(f.Categories, d.Categories) {
		return false
	}
	if len(f.CategoryPaths) > 0 && !underAnyPath(f.CategoryPaths, d.Categories) {
		return false
	}
	if len(f.Sizes) > 0 && !overlapsFold(f.Sizes, d.Sizes) {
		return false
	}

	if q := strings.TrimSpace(f.Search); q != "" && !matchesSearch(d, q) {
		return false
	}

	return true
}

func matchesSearch(d domain.Deal, q string) bool {
	q = strings.ToLower(q)
	if strings.Contains(strings.ToLower(d.Name), q) {
		return true
	}
	if strings.Contains(strings.ToLower(d.BrandName()), q) {
		return true
	}
	if d.Description != nil && strings.Contains(strings.ToLower(*d.Description), q) {
		return true
	}
	return false
}

// underAnyPath matches a category equal to a path or nested beneath it.
func underAnyPath(paths []string, categories []string) bool {
	for _, p := range paths {
		p = strings.Trim(strings.ToLower(p), "/ ")
		if p == "" {
			continue
		}
		for _, c := range categories {
			c = strings.ToLower(c)
			if c == p || strings.HasPrefix(c, p+"/") {
				return true
			}
		}
	}
	return false
}

func containsStore(list []domain.StoreID, s domain.StoreID) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsGender(list []domain.Gender, g domain.Gender) bool {
	for _, v := range list {
		if v == g {
			return true
		}
	}
	return false
}

func containsFold(list []string, s string) bool {
	if s == "" {
		return false
	}
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), s) {
			return true
		}
	}
	return false
}

func overlapsFold(want []string, have []string) bool {
	for _, h := range have {
		if containsFold(want, strings.TrimSpace(h)) {
			return true
		}
	}
	return false
}
