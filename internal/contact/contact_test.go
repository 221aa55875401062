package contact

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/catalog"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/ratelimit"
)

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time { return c.now }

func newTestService(store *catalog.MemoryStore, now time.Time) *Service {
	clock := &stepClock{now: now}
	svc := NewService(store, ratelimit.NewSubmissionGuard(clock), nil)
	svc.Now = clock.Now
	return svc
}

func validSubmission(now time.Time) Submission {
	return Submission{
		Name:       "Marko",
		Email:      "marko@example.rs",
		Message:    "Zdravo, imam pitanje o popustima.",
		RenderedAt: now.Add(-10 * time.Second).UnixMilli(),
	}
}

func messageCount(t *testing.T, store *catalog.MemoryStore) int {
	t.Helper()
	page, err := store.ListMessages(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	return page.Total
}

func TestSubmit_Stores(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := catalog.NewMemoryStore()
	svc := newTestService(store, now)

	out, m, err := svc.Submit(context.Background(), validSubmission(now), "1.1.1.1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out != OutcomeStored || m.ID == "" || m.IP != "1.1.1.1" {
		t.Fatalf("unexpected result: %s %+v", out, m)
	}
	if messageCount(t, store) != 1 {
		t.Fatalf("expected one stored message")
	}
}

func TestSubmit_HoneypotCreatesNothing(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := catalog.NewMemoryStore()
	svc := newTestService(store, now)

	sub := validSubmission(now)
	sub.Honeypot = "http://spam.example"

	out, _, err := svc.Submit(context.Background(), sub, "1.1.1.1")
	if err != nil {
		t.Fatalf("expected silent success, got %v", err)
	}
	if out != OutcomeDiscarded {
		t.Fatalf("expected discarded outcome, got %s", out)
	}
	if messageCount(t, store) != 0 {
		t.Fatalf("honeypot submission must not persist")
	}
}

func TestSubmit_TooFastOrMissingRenderTime(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := catalog.NewMemoryStore()
	svc := newTestService(store, now)

	for _, renderedAt := range []int64{0, now.Add(-2 * time.Second).UnixMilli(), now.Add(time.Minute).UnixMilli()} {
		sub := validSubmission(now)
		sub.RenderedAt = renderedAt
		out, _, err := svc.Submit(context.Background(), sub, "ip-"+time.UnixMilli(renderedAt).String())
		if err != nil || out != OutcomeDiscarded {
			t.Fatalf("renderedAt=%d: expected discard, got %s %v", renderedAt, out, err)
		}
	}
	if messageCount(t, store) != 0 {
		t.Fatalf("expected nothing stored")
	}
}

func TestSubmit_RateLimitedOnFourthCall(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(catalog.NewMemoryStore(), now)

	for i := 0; i < 3; i++ {
		if _, _, err := svc.Submit(context.Background(), validSubmission(now), "9.9.9.9"); err != nil {
			t.Fatalf("call %d: unexpected err %v", i+1, err)
		}
	}

	_, _, err := svc.Submit(context.Background(), validSubmission(now), "9.9.9.9")
	re, ok := IsRateLimited(err)
	if !ok || re.RetryAfter != 60*time.Second {
		t.Fatalf("expected rate limit with 60s hint, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		sub     Submission
		wantMsg string
	}{
		{"missing name", Submission{Email: "a@b.rs", Message: "dovoljno dugačka poruka"}, "name is required"},
		{"long name", Submission{Name: strings.Repeat("x", 101), Email: "a@b.rs", Message: "dovoljno dugačka poruka"}, "name must be at most"},
		{"bad email", Submission{Name: "A", Email: "not-an-email", Message: "dovoljno dugačka poruka"}, "email is invalid"},
		{"display name email", Submission{Name: "A", Email: "A <a@b.rs>", Message: "dovoljno dugačka poruka"}, "email is invalid"},
		{"dotless domain", Submission{Name: "A", Email: "a@localhost", Message: "dovoljno dugačka poruka"}, "email is invalid"},
		{"short message", Submission{Name: "A", Email: "a@b.rs", Message: "hi"}, "message must be at least"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.sub)
			ve, ok := IsValidation(err)
			if !ok {
				t.Fatalf("expected validation error, got %v", err)
			}
			found := false
			for _, m := range ve.Messages {
				if strings.HasPrefix(m, tt.wantMsg) {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected %q in %#v", tt.wantMsg, ve.Messages)
			}
		})
	}
}
