package invoice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/kailas-cloud/invoicedex/internal/db"
	"github.com/kailas-cloud/invoicedex/internal/domain"
	dominv "github.com/kailas-cloud/invoicedex/internal/domain/invoice"
)

func TestEnsureIndex(t *testing.T) {
	repo, ms := newTestRepo(t)

	var got *db.IndexDefinition
	ms.createIndexFn = func(_ context.Context, def *db.IndexDefinition) error {
		got = def
		return db.ErrIndexExists
	}

	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("existing index should not be an error: %v", err)
	}
	if got.Name != "inv:invoices" || got.StorageType != db.StorageJSON || got.Prefixes[0] != "inv:invoice:" {
		t.Errorf("index = %s", got)
	}
}

func TestCreate_WritesRowAtKey(t *testing.T) {
	repo, ms := newTestRepo(t)
	created := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)

	var stored recordRow
	ms.jsonSetFn = func(_ context.Context, key, path string, data []byte) error {
		if key != "inv:invoice:id-1" || path != "$" {
			t.Errorf("key=%s path=%s", key, path)
		}
		return json.Unmarshal(data, &stored)
	}

	if err := repo.Create(context.Background(), testRecord(t, "id-1", created)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Archived != "false" || stored.CreatedAtTS != created.Unix() || stored.SourceFormat != `{"raw":1}` {
		t.Errorf("row = %+v", stored)
	}
}

func TestCreateMany(t *testing.T) {
	repo, ms := newTestRepo(t)

	var keys []string
	ms.jsonSetMultiFn = func(_ context.Context, items []db.JSONSetItem) error {
		for _, it := range items {
			keys = append(keys, it.Key)
		}
		return nil
	}

	recs := []dominv.Record{testRecord(t, "a", time.Now()), testRecord(t, "b", time.Now())}
	if err := repo.CreateMany(context.Background(), recs); err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 || keys[0] != "inv:invoice:a" || keys[1] != "inv:invoice:b" {
		t.Errorf("keys = %v", keys)
	}
}

func TestGet_RoundTrip(t *testing.T) {
	repo, ms := newTestRepo(t)
	rec := testRecord(t, "id-1", time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC))
	rec.Archive("org-1", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	data, err := marshalRecord(&rec)
	if err != nil {
		t.Fatal(err)
	}

	ms.jsonGetFn = func(_ context.Context, key string, _ ...string) ([]byte, error) {
		if key != "inv:invoice:id-1" {
			t.Errorf("key = %s", key)
		}
		return data, nil
	}

	got, err := repo.Get(context.Background(), "id-1")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Archived() || got.ArchivedBy() != "org-1" || got.ArchivedAt() == nil {
		t.Errorf("archive state lost: %+v", got)
	}
	if !got.CreatedAt().Equal(rec.CreatedAt()) {
		t.Errorf("created_at = %v", got.CreatedAt())
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)
	if _, err := repo.Get(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSave_RequiresExisting(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.existsFn = func(_ context.Context, _ string) (bool, error) { return false, nil }

	if err := repo.Save(context.Background(), testRecord(t, "x", time.Now())); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	repo, ms := newTestRepo(t)

	var deleted string
	ms.existsFn = func(_ context.Context, _ string) (bool, error) { return true, nil }
	ms.delFn = func(_ context.Context, key string) error {
		deleted = key
		return nil
	}

	if err := repo.Delete(context.Background(), "id-9"); err != nil {
		t.Fatal(err)
	}
	if deleted != "inv:invoice:id-9" {
		t.Errorf("deleted = %s", deleted)
	}
}

func TestDelete_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)
	if err := repo.Delete(context.Background(), "id-9"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestListQueries(t *testing.T) {
	older := testRecord(t, "old", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	newer := testRecord(t, "new", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name string
		call func(r *Repo) ([]dominv.Record, error)
		want string
	}{
		{"by issuer", func(r *Repo) ([]dominv.Record, error) {
			return r.ListByIssuer(context.Background(), "sup-1")
		}, `@issuer:{sup\-1}`},
		{"by recipient", func(r *Repo) ([]dominv.Record, error) {
			return r.ListByRecipient(context.Background(), "org-1")
		}, `@recipient:{org\-1}`},
		{"archived", func(r *Repo) ([]dominv.Record, error) {
			return r.ListArchived(context.Background(), "org-1")
		}, `@recipient:{org\-1} @archived:{true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, ms := newTestRepo(t)
			ms.searchListFn = func(_ context.Context, index, q string, _, limit int, _ []string) (*db.SearchResult, error) {
				if index != "inv:invoices" || q != tt.want || limit != listPageSize {
					t.Errorf("index=%s query=%s limit=%d", index, q, limit)
				}
				return searchResult(t, older, newer), nil
			}

			recs, err := tt.call(repo)
			if err != nil {
				t.Fatal(err)
			}
			if len(recs) != 2 || recs[0].ID() != "new" {
				t.Errorf("want newest first, got %d records", len(recs))
			}
		})
	}
}

func TestListByRecipient_PagesPastOneWindow(t *testing.T) {
	const total = 2*listPageSize + 3
	all := make([]dominv.Record, total)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range all {
		all[i] = testRecord(t, fmt.Sprintf("inv-%d", i), base.Add(time.Duration(i)*time.Minute))
	}

	repo, ms := newTestRepo(t)
	var offsets []int
	ms.searchListFn = func(_ context.Context, _, _ string, offset, limit int, _ []string) (*db.SearchResult, error) {
		offsets = append(offsets, offset)
		end := min(offset+limit, total)
		res := searchResult(t, all[offset:end]...)
		res.Total = total
		return res, nil
	}

	recs, err := repo.ListByRecipient(context.Background(), "org-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != total {
		t.Fatalf("records = %d, want %d", len(recs), total)
	}
	if want := []int{0, listPageSize, 2 * listPageSize}; !slices.Equal(offsets, want) {
		t.Errorf("offsets = %v, want %v", offsets, want)
	}
	if recs[0].ID() != fmt.Sprintf("inv-%d", total-1) {
		t.Errorf("first = %s, want newest", recs[0].ID())
	}
}

func TestListPage(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchListFn = func(_ context.Context, _, q string, offset, limit int, _ []string) (*db.SearchResult, error) {
		if q != "*" || offset != 100 || limit != 50 {
			t.Errorf("q=%s offset=%d limit=%d", q, offset, limit)
		}
		res := searchResult(t, testRecord(t, "a", time.Now()))
		res.Total = 151
		return res, nil
	}

	recs, total, err := repo.ListPage(context.Background(), 100, 50)
	if err != nil {
		t.Fatal(err)
	}
	if total != 151 || len(recs) != 1 {
		t.Errorf("total=%d len=%d", total, len(recs))
	}
}

func searchResult(t *testing.T, recs ...dominv.Record) *db.SearchResult {
	t.Helper()
	res := &db.SearchResult{Total: len(recs)}
	for i := range recs {
		data, err := marshalRecord(&recs[i])
		if err != nil {
			t.Fatal(err)
		}
		res.Entries = append(res.Entries, db.SearchEntry{
			Key:    keyPrefix(testPrefix) + recs[i].ID(),
			Fields: map[string]string{"$": string(data)},
		})
	}
	return res
}
