package mapping

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/invoicedex/internal/db"
	"github.com/kailas-cloud/invoicedex/internal/domain"
	dommap "github.com/kailas-cloud/invoicedex/internal/domain/mapping"
)

const listLimit = 10000

// store is the consumer interface for mapping specs (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetIfAbsent(ctx context.Context, key string, fields map[string]string) (bool, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	SearchList(ctx context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error)
}

// Repo keeps one mapping spec hash per supplier.
type Repo struct {
	store  store
	prefix string
}

// New creates a mapping spec repository.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix}
}

// EnsureIndex creates the spec index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	def := db.NewIndex(r.indexName()).
		OnHash().
		Prefix(r.keyPrefix()).
		Tag("id").
		Tag("supplier_id").
		Tag("mapped").
		MustBuild()
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create mapping index: %w", err)
	}
	return nil
}

// Create stores a new spec. A supplier holds at most one; of two concurrent
// uploads exactly one wins.
func (r *Repo) Create(ctx context.Context, spec dommap.Spec) error {
	fields, err := specToHash(&spec)
	if err != nil {
		return err
	}
	key := r.key(spec.SupplierID())
	created, err := r.store.HSetIfAbsent(ctx, key, fields)
	if err != nil {
		return fmt.Errorf("create %s: %w", key, err)
	}
	if !created {
		return domain.ErrAlreadyExists
	}
	return nil
}

// Save overwrites the supplier's spec.
func (r *Repo) Save(ctx context.Context, spec dommap.Spec) error {
	fields, err := specToHash(&spec)
	if err != nil {
		return err
	}
	key := r.key(spec.SupplierID())
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// GetBySupplier returns the supplier's spec.
func (r *Repo) GetBySupplier(ctx context.Context, supplierID string) (dommap.Spec, error) {
	key := r.key(supplierID)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return dommap.Spec{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(m) == 0 {
		return dommap.Spec{}, domain.ErrMappingSpecNotFound
	}
	return specFromHash(m)
}

// GetByID looks a spec up by its template id.
func (r *Repo) GetByID(ctx context.Context, id string) (dommap.Spec, error) {
	q := fmt.Sprintf("@id:{%s}", db.EscapeTag(id))
	res, err := r.store.SearchList(ctx, r.indexName(), q, 0, 1, nil)
	if err != nil {
		return dommap.Spec{}, fmt.Errorf("search spec %s: %w", id, err)
	}
	if res == nil || len(res.Entries) == 0 {
		return dommap.Spec{}, domain.ErrMappingSpecNotFound
	}
	return specFromHash(res.Entries[0].Fields)
}

// ListUnmapped returns templates still waiting for an administrator.
func (r *Repo) ListUnmapped(ctx context.Context) ([]dommap.Spec, error) {
	res, err := r.store.SearchList(ctx, r.indexName(), "@mapped:{false}", 0, listLimit, nil)
	if err != nil {
		return nil, fmt.Errorf("search unmapped specs: %w", err)
	}
	if res == nil {
		return nil, nil
	}
	specs := make([]dommap.Spec, 0, len(res.Entries))
	for _, e := range res.Entries {
		spec, err := specFromHash(e.Fields)
		if err != nil {
			return nil, fmt.Errorf("spec %s: %w", e.Key, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func (r *Repo) key(supplierID string) string { return r.keyPrefix() + supplierID }

func (r *Repo) keyPrefix() string { return r.prefix + "mapping:" }

func (r *Repo) indexName() string { return r.prefix + "mappings" }
