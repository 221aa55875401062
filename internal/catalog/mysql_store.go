package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/milos-micke-mitrovic/vrebaj-popust-sub001/internal/domain"
)

// MySQLStore expects a DSN with parseTime=true.
type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

const dealColumns = `id, store, name, brand, description,
	original_price, sale_price, discount_percent,
	url, image_url, detail_image_url,
	sizes_json, categories_json, gender,
	scraped_at, details_scraped_at, created_at, updated_at`

func (s *MySQLStore) UpsertDeal(ctx context.Context, d domain.Deal) error {
	sizes, err := json.Marshal(nonNil(d.Sizes))
	if err != nil {
		return err
	}
	cats, err := json.Marshal(nonNil(d.Categories))
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO deals (`+dealColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE
		   store = VALUES(store),
		   name = VALUES(name),
		   brand = VALUES(brand),
		   description = VALUES(description),
		   original_price = VALUES(original_price),
		   sale_price = VALUES(sale_price),
		   discount_percent = VALUES(discount_percent),
		   url = VALUES(url),
		   image_url = VALUES(image_url),
		   detail_image_url = VALUES(detail_image_url),
		   sizes_json = VALUES(sizes_json),
		   categories_json = VALUES(categories_json),
		   gender = VALUES(gender),
		   scraped_at = VALUES(scraped_at),
		   details_scraped_at = VALUES(details_scraped_at),
		   updated_at = VALUES(updated_at)`,
		d.ID, string(d.Store), d.Name, d.Brand, d.Description,
		d.OriginalPrice, d.SalePrice, d.DiscountPercent,
		d.URL, d.ImageURL, d.DetailImageURL,
		sizes, cats, string(d.Gender),
		d.ScrapedAt.UTC(), utcPtr(d.DetailsScrapedAt), now, now,
	)
	return err
}

func (s *MySQLStore) GetDeal(ctx context.Context, id string) (domain.Deal, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+dealColumns+` FROM deals WHERE id = ?`, id)
	d, err := scanDeal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Deal{}, ErrNotFound
	}
	return d, err
}

// FindDeals pushes the scalar predicates into SQL; JSON list and search
// predicates are finished in Go by DealFilter.Match.
func (s *MySQLStore) FindDeals(ctx context.Context, f DealFilter) ([]domain.Deal, error) {
	where := []string{"1=1"}
	args := []any{}

	if f.MinDiscount > 0 {
		where = append(where, "discount_percent >= ?")
		args = append(args, f.MinDiscount)
	}
	if f.MinPrice > 0 {
		where = append(where, "sale_price >= ?")
		args = append(args, f.MinPrice)
	}
	if f.MaxPrice != nil {
		where = append(where, "sale_price <= ?")
		args = append(args, *f.MaxPrice)
	}
	if len(f.Stores) > 0 {
		vals := make([]any, 0, len(f.Stores))
		for _, st := range f.Stores {
			vals = append(vals, string(st))
		}
		where = append(where, "store IN ("+placeholders(len(vals))+")")
		args = append(args, vals...)
	}
	if len(f.Genders) > 0 {
		vals := make([]any, 0, len(f.Genders))
		for _, g := range f.Genders {
			vals = append(vals, string(g))
		}
		where = append(where, "gender IN ("+placeholders(len(vals))+")")
		args = append(args, vals...)
	}
	if len(f.Brands) > 0 {
		vals := make([]any, 0, len(f.Brands))
		for _, b := range f.Brands {
			vals = append(vals, strings.TrimSpace(b))
		}
		where = append(where, "brand IN ("+placeholders(len(vals))+")")
		args = append(args, vals...)
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+dealColumns+` FROM deals WHERE `+strings.Join(where, " AND ")+` ORDER BY id`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Deal, 0, 128)
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		if f.Match(d) {
			out = append(out, d)
		}
	}
	return out, rows.Err()
}

func (s *MySQLStore) DeleteDeals(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM deals WHERE id IN (`+placeholders(len(ids))+`)`, stringArgs(ids)...)
	return affected(res, err)
}

func (s *MySQLStore) DeleteAllDeals(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM deals`)
	return affected(res, err)
}

func (s *MySQLStore) InsertScrapeRun(ctx context.Context, run domain.ScrapeRun) error {
	eb, err := json.Marshal(nonNil(run.Errors))
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO scrape_runs (
			run_id, store, total_scraped, filtered_count, errors_json,
			imported_count, failed_count, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, string(run.Store), run.TotalScraped, run.FilteredCount, eb,
		run.ImportedCount, run.FailedCount, run.CompletedAt.UTC(),
	)
	return err
}

func (s *MySQLStore) ListScrapeRuns(ctx context.Context, limit int) ([]domain.ScrapeRun, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT run_id, store, total_scraped, filtered_count, errors_json,
		        imported_count, failed_count, completed_at
		 FROM scrape_runs
		 ORDER BY completed_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ScrapeRun, 0, limit)
	for rows.Next() {
		var r domain.ScrapeRun
		var store string
		var eb []byte
		if err := rows.Scan(
			&r.RunID, &store, &r.TotalScraped, &r.FilteredCount, &eb,
			&r.ImportedCount, &r.FailedCount, &r.CompletedAt,
		); err != nil {
			return nil, err
		}
		r.Store = domain.StoreID(store)
		r.Errors = []string{}
		if len(eb) > 0 {
			if err := json.Unmarshal(eb, &r.Errors); err != nil {
				return nil, fmt.Errorf("scrape run %s errors_json: %w", r.RunID, err)
			}
		}
		r.CompletedAt = r.CompletedAt.UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *MySQLStore) InsertMessage(ctx context.Context, m domain.Message) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO messages (id, name, email, body, ip, is_read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Name, m.Email, m.Body, m.IP, m.Read, m.CreatedAt.UTC(),
	)
	return err
}

func (s *MySQLStore) ListMessages(ctx context.Context, offset, limit int) (MessagePage, error) {
	page := MessagePage{Messages: []domain.Message{}}

	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_read THEN 0 ELSE 1 END), 0) FROM messages`,
	).Scan(&page.Total, &page.Unread)
	if err != nil {
		return MessagePage{}, err
	}

	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = page.Total
	}
	if limit == 0 {
		return page, nil
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, name, email, body, ip, is_read, created_at
		 FROM messages
		 ORDER BY created_at DESC, id ASC
		 LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return MessagePage{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Body, &m.IP, &m.Read, &m.CreatedAt); err != nil {
			return MessagePage{}, err
		}
		m.CreatedAt = m.CreatedAt.UTC()
		page.Messages = append(page.Messages, m)
	}
	return page, rows.Err()
}

func (s *MySQLStore) MarkMessagesRead(ctx context.Context, ids []string, read bool) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := append([]any{read}, stringArgs(ids)...)
	res, err := s.db.ExecContext(ctx, `UPDATE messages SET is_read = ? WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	return affected(res, err)
}

func (s *MySQLStore) DeleteMessages(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id IN (`+placeholders(len(ids))+`)`, stringArgs(ids)...)
	return affected(res, err)
}

func (s *MySQLStore) DeleteAllMessages(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages`)
	return affected(res, err)
}

func (s *MySQLStore) GetIdempotency(ctx context.Context, scope, endpoint, keyHash string) (IdempotencyRecord, bool, error) {
	var status int
	var body []byte
	var created time.Time
	var expires time.Time

	err := s.db.QueryRowContext(
		ctx,
		`SELECT status_code, response_body_json, created_at, expires_at
		 FROM idempotency
		 WHERE scope = ? AND endpoint = ? AND idem_key_hash = ?`,
		scope, endpoint, keyHash,
	).Scan(&status, &body, &created, &expires)

	if errors.Is(err, sql.ErrNoRows) {
		return IdempotencyRecord{}, false, nil
	}
	if err != nil {
		return IdempotencyRecord{}, false, err
	}

	if time.Now().UTC().After(expires.UTC()) {
		return IdempotencyRecord{}, false, nil
	}

	return IdempotencyRecord{
		StatusCode: status,
		BodyJSON:   body,
		CreatedAt:  created.UTC(),
		ExpiresAt:  expires.UTC(),
	}, true, nil
}

func (s *MySQLStore) PutIdempotency(ctx context.Context, scope, endpoint, keyHash string, rec IdempotencyRecord) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO idempotency (scope, endpoint, idem_key_hash, status_code, response_body_json, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE
		   status_code = VALUES(status_code),
		   response_body_json = VALUES(response_body_json),
		   created_at = VALUES(created_at),
		   expires_at = VALUES(expires_at)`,
		scope, endpoint, keyHash, rec.StatusCode, rec.BodyJSON, rec.CreatedAt.UTC(), rec.ExpiresAt.UTC(),
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeal(row rowScanner) (domain.Deal, error) {
	var d domain.Deal
	var store, gender string
	var brand, desc, img, detailImg sql.NullString
	var detailsAt sql.NullTime
	var sizes, cats []byte

	if err := row.Scan(
		&d.ID, &store, &d.Name, &brand, &desc,
		&d.OriginalPrice, &d.SalePrice, &d.DiscountPercent,
		&d.URL, &img, &detailImg,
		&sizes, &cats, &gender,
		&d.ScrapedAt, &detailsAt, &d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return domain.Deal{}, err
	}

	d.Store = domain.StoreID(store)
	d.Gender = domain.Gender(gender)
	d.Brand = strPtr(brand)
	d.Description = strPtr(desc)
	d.ImageURL = strPtr(img)
	d.DetailImageURL = strPtr(detailImg)
	if detailsAt.Valid {
		t := detailsAt.Time.UTC()
		d.DetailsScrapedAt = &t
	}
	d.ScrapedAt = d.ScrapedAt.UTC()
	d.CreatedAt = d.CreatedAt.UTC()
	d.UpdatedAt = d.UpdatedAt.UTC()

	d.Sizes = []string{}
	d.Categories = []string{}
	if len(sizes) > 0 {
		if err := json.Unmarshal(sizes, &d.Sizes); err != nil {
			return domain.Deal{}, fmt.Errorf("deal %s sizes_json: %w", d.ID, err)
		}
	}
	if len(cats) > 0 {
		if err := json.Unmarshal(cats, &d.Categories); err != nil {
			return domain.Deal{}, fmt.Errorf("deal %s categories_json: %w", d.ID, err)
		}
	}
	return d, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(vals []string) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

func affected(res sql.Result, err error) (int, error) {
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func utcPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
