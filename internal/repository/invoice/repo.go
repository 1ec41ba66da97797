package invoice

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/kailas-cloud/invoicedex/internal/db"
	"github.com/kailas-cloud/invoicedex/internal/domain"
	dominv "github.com/kailas-cloud/invoicedex/internal/domain/invoice"
)

// listPageSize is the FT.SEARCH window used while paging through a listing.
const listPageSize = 1000

// store is the consumer interface for invoice records (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONSetMulti(ctx context.Context, items []db.JSONSetItem) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	SearchList(ctx context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error)
}

// Repo stores invoice records as RedisJSON documents with an FT index over
// issuer, recipient and the archive flag.
type Repo struct {
	store  store
	prefix string
}

// New creates an invoice repository. prefix namespaces every key and index.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix}
}

// EnsureIndex creates the record index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	if err := r.store.CreateIndex(ctx, buildIndex(r.prefix)); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create invoice index: %w", err)
	}
	return nil
}

// Create persists a new record.
func (r *Repo) Create(ctx context.Context, rec dominv.Record) error {
	data, err := marshalRecord(&rec)
	if err != nil {
		return err
	}
	key := r.key(rec.ID())
	if err := r.store.JSONSet(ctx, key, "$", data); err != nil {
		return fmt.Errorf("json.set %s: %w", key, err)
	}
	return nil
}

// CreateMany persists records in one pipelined round-trip.
func (r *Repo) CreateMany(ctx context.Context, recs []dominv.Record) error {
	items := make([]db.JSONSetItem, len(recs))
	for i := range recs {
		data, err := marshalRecord(&recs[i])
		if err != nil {
			return err
		}
		items[i] = db.JSONSetItem{Key: r.key(recs[i].ID()), Path: "$", Data: data}
	}
	if err := r.store.JSONSetMulti(ctx, items); err != nil {
		return fmt.Errorf("json.set %d records: %w", len(recs), err)
	}
	return nil
}

// Get returns a record by id.
func (r *Repo) Get(ctx context.Context, id string) (dominv.Record, error) {
	key := r.key(id)
	raw, err := r.store.JSONGet(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return dominv.Record{}, domain.ErrNotFound
		}
		return dominv.Record{}, fmt.Errorf("json.get %s: %w", key, err)
	}
	return recordFromJSON(string(raw))
}

// Save overwrites an existing record.
func (r *Repo) Save(ctx context.Context, rec dominv.Record) error {
	key := r.key(rec.ID())
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return r.Create(ctx, rec)
}

// Delete removes a record.
func (r *Repo) Delete(ctx context.Context, id string) error {
	key := r.key(id)
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

// ListByIssuer returns the supplier's invoices, newest first.
func (r *Repo) ListByIssuer(ctx context.Context, issuer string) ([]dominv.Record, error) {
	return r.list(ctx, fmt.Sprintf("@issuer:{%s}", db.EscapeTag(issuer)))
}

// ListByRecipient returns the organization's invoices, newest first.
func (r *Repo) ListByRecipient(ctx context.Context, recipient string) ([]dominv.Record, error) {
	return r.list(ctx, fmt.Sprintf("@recipient:{%s}", db.EscapeTag(recipient)))
}

// ListArchived returns the archived invoices received by recipient.
func (r *Repo) ListArchived(ctx context.Context, recipient string) ([]dominv.Record, error) {
	return r.list(ctx, fmt.Sprintf("@recipient:{%s} @archived:{true}", db.EscapeTag(recipient)))
}

// ListPage returns one page of all records and the total count.
func (r *Repo) ListPage(ctx context.Context, offset, limit int) ([]dominv.Record, int, error) {
	res, err := r.store.SearchList(ctx, indexName(r.prefix), "*", offset, limit, []string{"$"})
	if err != nil {
		return nil, 0, fmt.Errorf("search list invoices: %w", err)
	}
	recs, err := r.parseEntries(res)
	if err != nil {
		return nil, 0, err
	}
	return recs, res.Total, nil
}

// list pages through every match of q.
func (r *Repo) list(ctx context.Context, q string) ([]dominv.Record, error) {
	var recs []dominv.Record
	for offset := 0; ; {
		res, err := r.store.SearchList(ctx, indexName(r.prefix), q, offset, listPageSize, []string{"$"})
		if err != nil {
			return nil, fmt.Errorf("search list %q at %d: %w", q, offset, err)
		}
		page, err := r.parseEntries(res)
		if err != nil {
			return nil, err
		}
		recs = append(recs, page...)
		if res == nil || len(res.Entries) == 0 {
			break
		}
		offset += len(res.Entries)
		if offset >= res.Total {
			break
		}
	}
	slices.SortStableFunc(recs, func(a, b dominv.Record) int {
		return b.CreatedAt().Compare(a.CreatedAt())
	})
	return recs, nil
}

func (r *Repo) parseEntries(res *db.SearchResult) ([]dominv.Record, error) {
	if res == nil || res.Total == 0 {
		return nil, nil
	}
	recs := make([]dominv.Record, 0, len(res.Entries))
	for _, e := range res.Entries {
		raw := e.Fields["$"]
		if raw == "" {
			continue
		}
		rec, err := recordFromJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", strings.TrimPrefix(e.Key, keyPrefix(r.prefix)), err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (r *Repo) key(id string) string {
	return keyPrefix(r.prefix) + id
}
