package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/domain"
	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/metrics"
)

var ErrUnknownStore = errors.New("unknown store")

// Sink is the slice of the catalog the importer writes to.
type Sink interface {
	UpsertDeal(ctx context.Context, d domain.Deal) error
	InsertScrapeRun(ctx context.Context, run domain.ScrapeRun) error
}

type ListingFailure struct {
	Index  int               `json:"index"`
	ID     string            `json:"id,omitempty"`
	Reason string            `json:"reason"`
	Issues []ValidationIssue `json:"issues,omitempty"`
}

type Result struct {
	RunID    string            `json:"runId"`
	Store    domain.StoreID    `json:"store"`
	Upserted int               `json:"upserted"`
	Failed   int               `json:"failed"`
	Failures []ListingFailure  `json:"failures"`
	Warnings UnknownKeyWarning `json:"warnings"`
}

type Importer struct {
	Sink    Sink
	IDMode  IDMode
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time

	mu    sync.Mutex
	locks map[domain.StoreID]*sync.Mutex
}

func NewImporter(sink Sink, mode IDMode, logger *zap.Logger, m *metrics.Metrics) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{
		Sink:    sink,
		IDMode:  mode,
		Logger:  logger,
		Metrics: m,
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

// Import upserts every listing of b and then appends one ScrapeRun.
// A batch for an unknown store is rejected whole with ErrUnknownStore.
// Listing failures are counted and never abort the batch.
// Imports of the same store are serialized.
func (im *Importer) Import(ctx context.Context, b Batch) (Result, error) {
	store, ok := domain.ParseStore(b.Store)
	if !ok {
		im.Logger.Warn("skipping batch for unknown store", zap.String("store", b.Store))
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownStore, b.Store)
	}

	lock := im.storeLock(store)
	lock.Lock()
	defer lock.Unlock()

	runID, err := NewRunID()
	if err != nil {
		return Result{}, err
	}

	log := im.Logger.With(zap.String("run_id", runID), zap.String("store", string(store)))

	now := im.now()
	scrapedAt := now
	if b.ScrapedAt != nil {
		scrapedAt = b.ScrapedAt.UTC()
	}

	res := Result{
		RunID:    runID,
		Store:    store,
		Failures: []ListingFailure{},
		Warnings: b.Warnings,
	}
	if len(b.Warnings.UnknownKeys) > 0 {
		log.Debug("batch has unknown keys", zap.Strings("keys", b.Warnings.UnknownKeys))
	}

	for i, raw := range b.Deals {
		if err := ctx.Err(); err != nil {
			// Stop early but still record the run below.
			log.Warn("import cancelled", zap.Error(err), zap.Int("remaining", len(b.Deals)-i))
			res.Failed += len(b.Deals) - i
			break
		}

		d, vr := ParseDeal(raw, store, scrapedAt)
		if !vr.IsValid() {
			res.Failed++
			res.Failures = append(res.Failures, ListingFailure{
				Index:  i,
				ID:     d.ID,
				Reason: "validation_failed",
				Issues: vr.Issues,
			})
			log.Warn("listing rejected", zap.Int("index", i), zap.String("id", d.ID), zap.Any("issues", vr.Issues))
			continue
		}

		d.ID = ResolveID(im.IDMode, d, now)

		if err := im.Sink.UpsertDeal(ctx, d); err != nil {
			res.Failed++
			res.Failures = append(res.Failures, ListingFailure{
				Index:  i,
				ID:     d.ID,
				Reason: "upsert_failed",
			})
			log.Error("listing upsert failed", zap.Int("index", i), zap.String("id", d.ID), zap.Error(err))
			continue
		}
		res.Upserted++
	}

	errs := make([]string, len(b.Errors))
	copy(errs, b.Errors)

	run := domain.ScrapeRun{
		RunID:         runID,
		Store:         store,
		TotalScraped:  b.TotalScraped,
		FilteredCount: b.FilteredCount,
		Errors:        errs,
		ImportedCount: res.Upserted,
		FailedCount:   res.Failed,
		CompletedAt:   im.now(),
	}

	// The run is recorded even when the context was cancelled mid-batch.
	if err := im.Sink.InsertScrapeRun(context.WithoutCancel(ctx), run); err != nil {
		log.Error("scrape run insert failed", zap.Error(err))
		return res, fmt.Errorf("record scrape run: %w", err)
	}

	im.Metrics.ObserveImport(string(store), res.Upserted, res.Failed)

	log.Info("import complete",
		zap.Int("listings", len(b.Deals)),
		zap.Int("upserted", res.Upserted),
		zap.Int("failed", res.Failed),
		zap.Int("total_scraped", b.TotalScraped),
		zap.Int("filtered_count", b.FilteredCount),
	)

	return res, nil
}

func (im *Importer) storeLock(store domain.StoreID) *sync.Mutex {
	im.mu.Lock()
	defer im.mu.Unlock()

	if im.locks == nil {
		im.locks = make(map[domain.StoreID]*sync.Mutex)
	}
	l, ok := im.locks[store]
	if !ok {
		l = &sync.Mutex{}
		im.locks[store] = l
	}
	return l
}

func (im *Importer) now() time.Time {
	if im.Now == nil {
		return time.Now().UTC()
	}
	return im.Now().UTC()
}
