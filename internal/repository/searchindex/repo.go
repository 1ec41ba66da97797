package searchindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/invoicedex/internal/db"
	"github.com/kailas-cloud/invoicedex/internal/domain/search/document"
	"github.com/kailas-cloud/invoicedex/internal/domain/search/query"
)

// store is the consumer interface for the invoice search index (ISP).
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	Del(ctx context.Context, key string) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Repo writes index documents and runs structured queries over them.
type Repo struct {
	store  store
	prefix string
}

// New creates a search index repository.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix}
}

// EnsureIndex creates the search index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	if err := r.store.CreateIndex(ctx, buildIndex(r.indexName(), r.keyPrefix())); err != nil &&
		!errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create search index: %w", err)
	}
	return nil
}

// Rebuild drops and recreates the index definition so a schema change takes
// effect. Documents are kept; the store re-scans them under the new schema.
func (r *Repo) Rebuild(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.indexName())
	if err != nil {
		return fmt.Errorf("probe search index: %w", err)
	}
	if exists {
		if err := r.store.DropIndex(ctx, r.indexName()); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
			return fmt.Errorf("drop search index: %w", err)
		}
	}
	return r.EnsureIndex(ctx)
}

// Count returns the number of indexed documents.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.indexName(), "*")
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", r.indexName(), err)
	}
	return n, nil
}

// Put writes a document under its original invoice id, replacing any earlier version.
func (r *Repo) Put(ctx context.Context, doc document.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal index document %s: %w", doc.ID(), err)
	}
	key := r.keyPrefix() + doc.ID()
	if err := r.store.JSONSet(ctx, key, "$", data); err != nil {
		return fmt.Errorf("json.set %s: %w", key, err)
	}
	return nil
}

// Delete removes the document of an invoice. A missing document is not an error.
func (r *Repo) Delete(ctx context.Context, invoiceID string) error {
	key := r.keyPrefix() + invoiceID
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

// Search runs q and returns up to size hits ordered by invoice date, plus the total match count.
func (r *Repo) Search(ctx context.Context, q query.Query, size int) ([]document.Hit, int, error) {
	res, err := r.store.Search(ctx, &db.SearchQuery{
		IndexName:    r.indexName(),
		Query:        q,
		Limit:        size,
		ReturnFields: []string{"$"},
		SortBy:       db.FieldAlias("invoice_date") + db.DateSuffix,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("search %s: %w", r.indexName(), err)
	}
	if res == nil || res.Total == 0 {
		return nil, 0, nil
	}

	hits := make([]document.Hit, 0, len(res.Entries))
	for _, e := range res.Entries {
		raw := e.Fields["$"]
		if raw == "" {
			continue
		}
		var doc document.Document
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, 0, fmt.Errorf("decode hit %s: %w", e.Key, err)
		}
		hits = append(hits, document.Hit{ID: strings.TrimPrefix(e.Key, r.keyPrefix()), Document: doc})
	}
	return hits, res.Total, nil
}

func (r *Repo) indexName() string { return r.prefix + "search" }

func (r *Repo) keyPrefix() string { return r.prefix + "search:" }
