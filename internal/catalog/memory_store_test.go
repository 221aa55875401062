package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/domain"
)

func strp(s string) *string { return &s }

func TestMemoryStore_UpsertOverwritesWholesale(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first := domain.Deal{
		ID:          "planeta-1",
		Store:       domain.StorePlaneta,
		Name:        "Patike",
		Description: strp("old"),
		Sizes:       []string{"42"},
	}
	if err := s.UpsertDeal(ctx, first); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	got1, _ := s.GetDeal(ctx, "planeta-1")

	second := domain.Deal{ID: "planeta-1", Store: domain.StorePlaneta, Name: "Patike 2"}
	if err := s.UpsertDeal(ctx, second); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	got, err := s.GetDeal(ctx, "planeta-1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.Name != "Patike 2" || got.Description != nil || len(got.Sizes) != 0 {
		t.Fatalf("expected wholesale overwrite, got %+v", got)
	}
	if !got.CreatedAt.Equal(got1.CreatedAt) {
		t.Fatalf("expected createdAt preserved")
	}

	all, _ := s.FindDeals(ctx, DealFilter{})
	if len(all) != 1 {
		t.Fatalf("expected 1 deal, got %d", len(all))
	}
}

func TestMemoryStore_GetDealMissing(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.GetDeal(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_ReturnedDealsAreCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_ = s.UpsertDeal(ctx, domain.Deal{ID: "a", Sizes: []string{"40"}})

	d, _ := s.GetDeal(ctx, "a")
	d.Sizes[0] = "mutated"

	again, _ := s.GetDeal(ctx, "a")
	if again.Sizes[0] != "40" {
		t.Fatalf("store state leaked through returned slice")
	}
}

func TestMemoryStore_DeleteDeals(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		_ = s.UpsertDeal(ctx, domain.Deal{ID: id})
	}

	n, _ := s.DeleteDeals(ctx, []string{"a", "zzz"})
	if n != 1 {
		t.Fatalf("expected 1 deleted, got %d", n)
	}
	n, _ = s.DeleteAllDeals(ctx)
	if n != 2 {
		t.Fatalf("expected 2 deleted, got %d", n)
	}
}

func TestMemoryStore_ScrapeRunsNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	_ = s.InsertScrapeRun(ctx, domain.ScrapeRun{RunID: "r1", CompletedAt: base})
	_ = s.InsertScrapeRun(ctx, domain.ScrapeRun{RunID: "r2", CompletedAt: base.Add(time.Minute)})

	runs, _ := s.ListScrapeRuns(ctx, 0)
	if len(runs) != 2 || runs[0].RunID != "r2" {
		t.Fatalf("unexpected order: %+v", runs)
	}

	runs, _ = s.ListScrapeRuns(ctx, 1)
	if len(runs) != 1 {
		t.Fatalf("expected limit to apply")
	}
}

func TestMemoryStore_Messages(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"m1", "m2", "m3"} {
		_ = s.InsertMessage(ctx, domain.Message{ID: id, CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}

	page, _ := s.ListMessages(ctx, 0, 2)
	if page.Total != 3 || page.Unread != 3 || len(page.Messages) != 2 || page.Messages[0].ID != "m3" {
		t.Fatalf("unexpected page: %+v", page)
	}

	n, _ := s.MarkMessagesRead(ctx, []string{"m1", "missing"}, true)
	if n != 1 {
		t.Fatalf("expected 1 marked, got %d", n)
	}
	page, _ = s.ListMessages(ctx, 2, 10)
	if page.Unread != 2 || len(page.Messages) != 1 || !page.Messages[0].Read {
		t.Fatalf("unexpected page after mark: %+v", page)
	}

	n, _ = s.DeleteMessages(ctx, []string{"m2"})
	if n != 1 {
		t.Fatalf("expected 1 deleted, got %d", n)
	}
	n, _ = s.DeleteAllMessages(ctx)
	if n != 2 {
		t.Fatalf("expected 2 deleted, got %d", n)
	}
}

func TestMemoryStore_IdempotencyTTL(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	keyHash := HashIdempotencyKey("k1")
	now := time.Now().UTC()

	err := s.PutIdempotency(ctx, "admin", "/x", keyHash, IdempotencyRecord{
		StatusCode: 200,
		BodyJSON:   []byte(`{"ok":true}`),
		CreatedAt:  now,
		ExpiresAt:  now.Add(-1 * time.Second),
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	_, ok, err := s.GetIdempotency(ctx, "admin", "/x", keyHash)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if ok {
		t.Fatalf("expected expired record to be treated as missing")
	}
}

func TestMemoryStore_IdempotencyScoped(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	keyHash := HashIdempotencyKey("k1")

	_ = s.PutIdempotency(ctx, "a", "/x", keyHash, IdempotencyRecord{StatusCode: 201, ExpiresAt: time.Now().Add(time.Hour)})

	if _, ok, _ := s.GetIdempotency(ctx, "b", "/x", keyHash); ok {
		t.Fatalf("expected other scope to miss")
	}
	if rec, ok, _ := s.GetIdempotency(ctx, "a", "/x", keyHash); !ok || rec.StatusCode != 201 {
		t.Fatalf("expected hit, got ok=%v rec=%+v", ok, rec)
	}
}

func TestMemoryStore_PutIdempotencyDropsExpiredRecords(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	_ = s.PutIdempotency(ctx, "admin", "/old", "h1", IdempotencyRecord{StatusCode: 200, ExpiresAt: clock.Add(time.Minute)})
	_ = s.PutIdempotency(ctx, "admin", "/x", "h2", IdempotencyRecord{StatusCode: 200, ExpiresAt: clock.Add(time.Hour)})

	clock = clock.Add(10 * time.Minute)
	_ = s.PutIdempotency(ctx, "admin", "/x", "h3", IdempotencyRecord{StatusCode: 201, ExpiresAt: clock.Add(time.Hour)})

	if _, ok := s.idem["admin|/old"]; ok {
		t.Fatalf("expected endpoint with only expired records to be dropped")
	}
	if n := len(s.idem["admin|/x"]); n != 2 {
		t.Fatalf("expected 2 live records, got %d", n)
	}
}

func TestMemoryStore_ReturnedDealsDoNotAliasStoredDeal(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	scraped := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	err := s.UpsertDeal(ctx, domain.Deal{
		ID:               "buzz-1",
		Store:            domain.StoreBuzz,
		Name:             "Patike",
		Brand:            strp("Nike"),
		Description:      strp("opis"),
		ImageURL:         strp("https://img.buzz.rs/1.jpg"),
		DetailImageURL:   strp("https://img.buzz.rs/1-big.jpg"),
		DetailsScrapedAt: &scraped,
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	got, _ := s.GetDeal(ctx, "buzz-1")
	*got.Brand = "Adidas"
	*got.Description = "changed"
	*got.ImageURL = "changed"
	*got.DetailImageURL = "changed"
	*got.DetailsScrapedAt = scraped.Add(time.Hour)

	listed, _ := s.FindDeals(ctx, DealFilter{})
	*listed[0].Brand = "Puma"

	again, _ := s.GetDeal(ctx, "buzz-1")
	if again.BrandName() != "Nike" || *again.Description != "opis" {
		t.Fatalf("expected stored strings untouched, got %+v", again)
	}
	if *again.ImageURL != "https://img.buzz.rs/1.jpg" || *again.DetailImageURL != "https://img.buzz.rs/1-big.jpg" {
		t.Fatalf("expected stored image urls untouched, got %+v", again)
	}
	if !again.DetailsScrapedAt.Equal(scraped) {
		t.Fatalf("expected stored detailsScrapedAt untouched, got %s", again.DetailsScrapedAt)
	}
}

func TestNewStore_UnknownBackend(t *testing.T) {
	if _, err := NewStore(context.Background(), FactoryConfig{Backend: "sqlite"}); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := NewStore(context.Background(), FactoryConfig{Backend: "mysql"}); err == nil {
		t.Fatalf("expected missing dsn error")
	}
	res, err := NewStore(context.Background(), FactoryConfig{})
	if err != nil || res.Store == nil {
		t.Fatalf("expected memory default, err=%v", err)
	}
}
