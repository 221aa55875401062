package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/catalog"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/domain"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/logging"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/query"
)

func strp(s string) *string { return &s }

func seedDeals(t *testing.T) *catalog.MemoryStore {
	t.Helper()
	store := catalog.NewMemoryStore()
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	deals := []domain.Deal{
		{ID: "a", Store: domain.StorePlaneta, Name: "Air Max", Brand: strp("Nike"), OriginalPrice: 10000, SalePrice: 4000, DiscountPercent: 60, URL: "https://planeta-sport.rs/a", Gender: domain.GenderMale, ScrapedAt: at},
		{ID: "b", Store: domain.StoreBuzz, Name: "Ultraboost", Brand: strp("Adidas"), OriginalPrice: 20000, SalePrice: 9000, DiscountPercent: 55, URL: "https://buzzsneakers.rs/b", Gender: domain.GenderFemale, ScrapedAt: at},
		{ID: "c", Store: domain.StoreBuzz, Name: "Socks", Brand: strp("Nike"), OriginalPrice: 1000, SalePrice: 800, DiscountPercent: 20, URL: "https://buzzsneakers.rs/c", Gender: domain.GenderUnisex, ScrapedAt: at},
	}
	for _, d := range deals {
		if err := store.UpsertDeal(context.Background(), d); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return store
}

func TestDealsHandler_AppliesDefaultFloor(t *testing.T) {
	h := DealsHandler{Query: query.NewService(seedDeals(t)), DefaultMinDiscount: 50}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/deals", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var res query.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Pagination.Total != 2 {
		t.Fatalf("expected 2 deals over the floor, got %d", res.Pagination.Total)
	}
	if res.Deals[0].ID != "a" {
		t.Fatalf("expected highest discount first, got %s", res.Deals[0].ID)
	}
	if len(res.Filters.Brands) != 2 {
		t.Fatalf("expected 2 brand facets, got %+v", res.Filters.Brands)
	}
}

func TestDealsHandler_FiltersFromQuery(t *testing.T) {
	h := DealsHandler{Query: query.NewService(seedDeals(t)), DefaultMinDiscount: 50}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/deals?minDiscount=0&stores=buzz&sortBy=price_asc", nil))

	var res query.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Deals) != 2 || res.Deals[0].ID != "c" || res.Deals[1].ID != "b" {
		t.Fatalf("unexpected deals: %+v", res.Deals)
	}
	if len(res.Filters.Stores) != 1 || res.Filters.Stores[0].Name != "buzz" {
		t.Fatalf("expected a single store facet, got %+v", res.Filters.Stores)
	}
}

func TestDealDetailHandler(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("GET /api/deals/{id}", DealDetailHandler{Query: query.NewService(seedDeals(t))})

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/deals/b", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var d domain.Deal
	if err := json.Unmarshal(rr.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Name != "Ultraboost" {
		t.Fatalf("expected Ultraboost, got %q", d.Name)
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/deals/missing", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

type brokenFinder struct{ err error }

func (f brokenFinder) FindDeals(ctx context.Context, _ catalog.DealFilter) ([]domain.Deal, error) {
	return nil, f.err
}

func (f brokenFinder) GetDeal(ctx context.Context, _ string) (domain.Deal, error) {
	return domain.Deal{}, f.err
}

func TestDealHandlers_StoreErrorsStayInLogs(t *testing.T) {
	const driverErr = "Error 1045 (28000): Access denied for user 'popust'@'10.0.0.7'"
	svc := query.NewService(brokenFinder{err: errors.New(driverErr)})

	mux := http.NewServeMux()
	mux.Handle("GET /api/deals", DealsHandler{Query: svc})
	mux.Handle("GET /api/deals/{id}", DealDetailHandler{Query: svc})

	for _, path := range []string{"/api/deals", "/api/deals/a"} {
		t.Run(path, func(t *testing.T) {
			core, logs := observer.New(zap.DebugLevel)
			req := httptest.NewRequest(http.MethodGet, path, nil)
			req = req.WithContext(logging.WithLogger(req.Context(), zap.New(core)))

			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)

			if rr.Code != http.StatusInternalServerError {
				t.Fatalf("expected 500, got %d", rr.Code)
			}
			if strings.Contains(rr.Body.String(), "Access denied") || strings.Contains(rr.Body.String(), "10.0.0.7") {
				t.Fatalf("expected driver error to stay out of the body: %s", rr.Body.String())
			}
			if logs.Len() != 1 || logs.All()[0].ContextMap()["error"] != driverErr {
				t.Fatalf("expected driver error in logs, got %+v", logs.All())
			}
		})
	}
}
