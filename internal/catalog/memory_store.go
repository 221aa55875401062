package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/domain"
)

type MemoryStore struct {
	mu sync.RWMutex

	deals    map[string]domain.Deal
	runs     []domain.ScrapeRun
	messages map[string]domain.Message

	idem map[string]map[string]IdempotencyRecord // scope+endpoint -> keyhash -> record

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		deals:    make(map[string]domain.Deal),
		messages: make(map[string]domain.Message),
		idem:     make(map[string]map[string]IdempotencyRecord),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) UpsertDeal(ctx context.Context, d domain.Deal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	d = cloneDeal(d)
	d.CreatedAt = now
	if prev, ok := s.deals[d.ID]; ok {
		d.CreatedAt = prev.CreatedAt
	}
	d.UpdatedAt = now

	s.deals[d.ID] = d
	return nil
}

func (s *MemoryStore) GetDeal(ctx context.Context, id string) (domain.Deal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.deals[id]
	if !ok {
		return domain.Deal{}, ErrNotFound
	}
	return cloneDeal(d), nil
}

func (s *MemoryStore) FindDeals(ctx context.Context, f DealFilter) ([]domain.Deal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Deal, 0, len(s.deals))
	for _, d := range s.deals {
		if f.Match(d) {
			out = append(out, cloneDeal(d))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) DeleteDeals(ctx context.Context, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, id := range ids {
		if _, ok := s.deals[id]; ok {
			delete(s.deals, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) DeleteAllDeals(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.deals)
	s.deals = make(map[string]domain.Deal)
	return n, nil
}

func (s *MemoryStore) InsertScrapeRun(ctx context.Context, run domain.ScrapeRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	errs := make([]string, len(run.Errors))
	copy(errs, run.Errors)
	run.Errors = errs

	s.runs = append(s.runs, run)
	return nil
}

// ListScrapeRuns returns the newest runs first.
func (s *MemoryStore) ListScrapeRuns(ctx context.Context, limit int) ([]domain.ScrapeRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ScrapeRun, len(s.runs))
	copy(out, s.runs)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})

	if limit <= 0 || limit > len(out) {
		return out, nil
	}
	return out[:limit], nil
}

func (s *MemoryStore) InsertMessage(ctx context.Context, m domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	s.messages[m.ID] = m
	return nil
}

func (s *MemoryStore) ListMessages(ctx context.Context, offset, limit int) (MessagePage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]domain.Message, 0, len(s.messages))
	unread := 0
	for _, m := range s.messages {
		all = append(all, m)
		if !m.Read {
			unread++
		}
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	page := MessagePage{Total: len(all), Unread: unread, Messages: []domain.Message{}}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return page, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	page.Messages = all[offset:end]
	return page, nil
}

func (s *MemoryStore) MarkMessagesRead(ctx context.Context, ids []string, read bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, id := range ids {
		m, ok := s.messages[id]
		if !ok {
			continue
		}
		m.Read = read
		s.messages[id] = m
		n++
	}
	return n, nil
}

func (s *MemoryStore) DeleteMessages(ctx context.Context, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, id := range ids {
		if _, ok := s.messages[id]; ok {
			delete(s.messages, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) DeleteAllMessages(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.messages)
	s.messages = make(map[string]domain.Message)
	return n, nil
}

func (s *MemoryStore) GetIdempotency(ctx context.Context, scope, endpoint, keyHash string) (IdempotencyRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ep, ok := s.idem[scope+"|"+endpoint]
	if !ok {
		return IdempotencyRecord{}, false, nil
	}
	rec, ok := ep[keyHash]
	if !ok {
		return IdempotencyRecord{}, false, nil
	}

	if s.now().After(rec.ExpiresAt) {
		return IdempotencyRecord{}, false, nil
	}

	return rec, true, nil
}

func (s *MemoryStore) PutIdempotency(ctx context.Context, scope, endpoint, keyHash string, rec IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneIdempotencyLocked()

	k := scope + "|" + endpoint
	ep, ok := s.idem[k]
	if !ok {
		ep = make(map[string]IdempotencyRecord)
		s.idem[k] = ep
	}
	ep[keyHash] = rec
	return nil
}

// pruneIdempotencyLocked drops expired records. Caller holds s.mu.
func (s *MemoryStore) pruneIdempotencyLocked() {
	now := s.now()
	for k, ep := range s.idem {
		for h, rec := range ep {
			if now.After(rec.ExpiresAt) {
				delete(ep, h)
			}
		}
		if len(ep) == 0 {
			delete(s.idem, k)
		}
	}
}

func cloneDeal(d domain.Deal) domain.Deal {
	d.Sizes = append([]string{}, d.Sizes...)
	d.Categories = append([]string{}, d.Categories...)
	d.Brand = cloneString(d.Brand)
	d.Description = cloneString(d.Description)
	d.ImageURL = cloneString(d.ImageURL)
	d.DetailImageURL = cloneString(d.DetailImageURL)
	if d.DetailsScrapedAt != nil {
		t := *d.DetailsScrapedAt
		d.DetailsScrapedAt = &t
	}
	return d
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
