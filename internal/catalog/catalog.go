package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/domain"
)

var ErrNotFound = errors.New("not found")

type IdempotencyRecord struct {
	StatusCode int
	BodyJSON   []byte
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// MessagePage is a slice of the inbox plus totals over the whole inbox.
type MessagePage struct {
	Messages []domain.Message
	Total    int
	Unread   int
}

type DealStore interface {
	// UpsertDeal overwrites the deal with the same id wholesale.
	UpsertDeal(ctx context.Context, d domain.Deal) error
	GetDeal(ctx context.Context, id string) (domain.Deal, error)
	FindDeals(ctx context.Context, f DealFilter) ([]domain.Deal, error)
	DeleteDeals(ctx context.Context, ids []string) (int, error)
	DeleteAllDeals(ctx context.Context) (int, error)
}

type RunStore interface {
	InsertScrapeRun(ctx context.Context, run domain.ScrapeRun) error
	ListScrapeRuns(ctx context.Context, limit int) ([]domain.ScrapeRun, error)
}

type MessageStore interface {
	InsertMessage(ctx context.Context, m domain.Message) error
	ListMessages(ctx context.Context, offset, limit int) (MessagePage, error)
	MarkMessagesRead(ctx context.Context, ids []string, read bool) (int, error)
	DeleteMessages(ctx context.Context, ids []string) (int, error)
	DeleteAllMessages(ctx context.Context) (int, error)
}

type IdempotencyStore interface {
	GetIdempotency(ctx context.Context, scope, endpoint, keyHash string) (IdempotencyRecord, bool, error)
	PutIdempotency(ctx context.Context, scope, endpoint, keyHash string, rec IdempotencyRecord) error
}

type Store interface {
	DealStore
	RunStore
	MessageStore
	IdempotencyStore
}

func HashIdempotencyKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
