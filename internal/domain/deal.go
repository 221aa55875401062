package domain

import (
	"math"
	"time"
)

type Deal struct {
	ID    string  `json:"id"`
	Store StoreID `json:"store"`

	Name        string  `json:"name"`
	Brand       *string `json:"brand"`
	Description *string `json:"description"`

	OriginalPrice   int `json:"originalPrice"`
	SalePrice       int `json:"salePrice"`
	DiscountPercent int `json:"discountPercent"`

	URL            string  `json:"url"`
	ImageURL       *string `json:"imageUrl"`
	DetailImageURL *string `json:"detailImageUrl"`

	Sizes      []string `json:"sizes"`
	Categories []string `json:"categories"`
	Gender     Gender   `json:"gender"`

	ScrapedAt        time.Time  `json:"scrapedAt"`
	DetailsScrapedAt *time.Time `json:"detailsScrapedAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DiscountPercent derives the rounded discount. Non-positive prices yield 0.
func DiscountPercent(originalPrice, salePrice int) int {
	if originalPrice <= 0 || salePrice <= 0 {
		return 0
	}
	pct := float64(originalPrice-salePrice) / float64(originalPrice) * 100
	return int(math.Round(pct))
}

// BrandName returns the brand or "" when unset.
func (d Deal) BrandName() string {
	if d.Brand == nil {
		return ""
	}
	return *d.Brand
}
