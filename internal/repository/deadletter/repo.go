package deadletter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/kailas-cloud/invoicedex/internal/db"
	"github.com/kailas-cloud/invoicedex/internal/domain/deadletter"
)

// store is the consumer interface for dead-letter records (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo keeps one expiring record per dead-lettered invoice.
type Repo struct {
	store  store
	prefix string
	ttl    time.Duration
}

// New creates a dead-letter repository. A zero ttl keeps records forever.
func New(s store, prefix string, ttl time.Duration) *Repo {
	return &Repo{store: s, prefix: prefix, ttl: ttl}
}

// Put stores or replaces the record for e.InvoiceID.
func (r *Repo) Put(ctx context.Context, e deadletter.Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal dead letter: %w", err)
	}
	key := r.key(e.InvoiceID)
	if err := r.store.SetWithTTL(ctx, key, data, r.ttl); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// List returns all records, most recent failure first.
func (r *Repo) List(ctx context.Context) ([]deadletter.Entry, error) {
	keys, err := r.store.Scan(ctx, r.key("*"))
	if err != nil {
		return nil, fmt.Errorf("scan dead letters: %w", err)
	}

	entries := make([]deadletter.Entry, 0, len(keys))
	for _, key := range keys {
		data, err := r.store.Get(ctx, key)
		if err != nil {
			if errors.Is(err, db.ErrKeyNotFound) {
				continue // expired between SCAN and GET
			}
			return nil, fmt.Errorf("get %s: %w", key, err)
		}
		var e deadletter.Entry
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		entries = append(entries, e)
	}

	slices.SortFunc(entries, func(a, b deadletter.Entry) int {
		return b.FailedAt.Compare(a.FailedAt)
	})
	return entries, nil
}

// Remove drops the record of an invoice, typically after a successful re-index.
func (r *Repo) Remove(ctx context.Context, invoiceID string) error {
	key := r.key(invoiceID)
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

func (r *Repo) key(invoiceID string) string { return r.prefix + "deadletter:" + invoiceID }
