package searchindex

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/invoicedex/internal/db"
	"github.com/kailas-cloud/invoicedex/internal/domain/invoice"
	"github.com/kailas-cloud/invoicedex/internal/domain/search/document"
	"github.com/kailas-cloud/invoicedex/internal/domain/search/query"
)

// mockStore keeps JSON documents in memory.
type mockStore struct {
	docs     map[string][]byte
	searchFn func(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
	indexDef *db.IndexDefinition
	dropped  []string
	countErr error
}

func (m *mockStore) JSONSet(_ context.Context, key, _ string, data []byte) error {
	if m.docs == nil {
		m.docs = map[string][]byte{}
	}
	m.docs[key] = data
	return nil
}

func (m *mockStore) Del(_ context.Context, key string) error {
	delete(m.docs, key)
	return nil
}

func (m *mockStore) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	m.indexDef = def
	return nil
}

func (m *mockStore) DropIndex(_ context.Context, name string) error {
	if m.indexDef == nil {
		return db.ErrIndexNotFound
	}
	m.dropped = append(m.dropped, name)
	m.indexDef = nil
	return nil
}

func (m *mockStore) IndexExists(context.Context, string) (bool, error) {
	return m.indexDef != nil, nil
}

func (m *mockStore) SearchCount(context.Context, string, string) (int, error) {
	return len(m.docs), m.countErr
}

func (m *mockStore) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func testDoc(t *testing.T, id, number string) document.Document {
	t.Helper()
	c := &invoice.Canonical{Header: invoice.Header{InvoiceNumber: number, InvoiceDate: "2024-01-15", DueDate: "2024-02-15"}}
	doc, err := document.Build(c, "sup-1", "org-1", id, false)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestEnsureIndex_Schema(t *testing.T) {
	ms := &mockStore{}
	repo := New(ms, "inv:")
	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatal(err)
	}

	schema := ms.indexDef.String()
	for _, want := range []string{
		"FT.CREATE inv:search ON JSON PREFIX inv:search:",
		"$.recipient AS recipient TAG",
		"$.items[*].description AS items_description TEXT",
		"$.invoice_date_ts AS invoice_date_ts NUMERIC SORTABLE",
		"$.due_date_ts AS due_date_ts NUMERIC",
		"$.summary.total_amount AS summary_total_amount NUMERIC",
	} {
		if !strings.Contains(schema, want) {
			t.Errorf("schema missing %q:\n%s", want, schema)
		}
	}
}

func TestEnsureIndex_TagsKeepCommas(t *testing.T) {
	ms := &mockStore{}
	if err := New(ms, "inv:").EnsureIndex(context.Background()); err != nil {
		t.Fatal(err)
	}

	var tags int
	for _, f := range ms.indexDef.Fields {
		if f.Type != db.IndexFieldTag {
			continue
		}
		tags++
		if f.TagSeparator != db.TagSeparator {
			t.Errorf("%s separator = %q, want %q", f.Alias, f.TagSeparator, db.TagSeparator)
		}
	}
	if tags == 0 {
		t.Fatal("no tag fields")
	}
}

func TestEnsureIndex_ExistingIsOK(t *testing.T) {
	repo := New(&existsStore{}, "inv:")
	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

type existsStore struct{ mockStore }

func (e *existsStore) CreateIndex(context.Context, *db.IndexDefinition) error { return db.ErrIndexExists }

func TestPut_OverwritesByInvoiceID(t *testing.T) {
	ms := &mockStore{}
	repo := New(ms, "inv:")
	ctx := context.Background()

	if err := repo.Put(ctx, testDoc(t, "id-1", "A")); err != nil {
		t.Fatal(err)
	}
	if err := repo.Put(ctx, testDoc(t, "id-1", "B")); err != nil {
		t.Fatal(err)
	}

	if len(ms.docs) != 1 {
		t.Fatalf("documents = %d, want exactly one", len(ms.docs))
	}
	var stored document.Document
	if err := json.Unmarshal(ms.docs["inv:search:id-1"], &stored); err != nil {
		t.Fatal(err)
	}
	if stored.InvoiceNumber != "B" {
		t.Errorf("invoice_number = %s, want latest write", stored.InvoiceNumber)
	}
}

func TestDelete(t *testing.T) {
	ms := &mockStore{}
	repo := New(ms, "inv:")
	ctx := context.Background()
	_ = repo.Put(ctx, testDoc(t, "id-1", "A"))

	if err := repo.Delete(ctx, "id-1"); err != nil {
		t.Fatal(err)
	}
	if len(ms.docs) != 0 {
		t.Errorf("document not removed")
	}
}

func TestSearch_DecodesHits(t *testing.T) {
	doc := testDoc(t, "id-7", "INV-7")
	data, _ := json.Marshal(doc)

	term, err := query.Term("recipient", "org-1")
	if err != nil {
		t.Fatal(err)
	}
	q, _ := query.New(nil, []query.Clause{term}, 0)

	ms := &mockStore{searchFn: func(_ context.Context, sq *db.SearchQuery) (*db.SearchResult, error) {
		if sq.IndexName != "inv:search" || sq.Limit != 25 || sq.SortBy != "invoice_date_ts" {
			t.Errorf("query = %+v", sq)
		}
		if len(sq.Query.Filter()) != 1 {
			t.Errorf("filter clauses = %d", len(sq.Query.Filter()))
		}
		return &db.SearchResult{Total: 40, Entries: []db.SearchEntry{
			{Key: "inv:search:id-7", Fields: map[string]string{"$": string(data)}},
		}}, nil
	}}

	hits, total, err := New(ms, "inv:").Search(context.Background(), q, 25)
	if err != nil {
		t.Fatal(err)
	}
	if total != 40 || len(hits) != 1 {
		t.Fatalf("total=%d hits=%d", total, len(hits))
	}
	if hits[0].ID != "id-7" || hits[0].Document.InvoiceNumber != "INV-7" {
		t.Errorf("hit = %+v", hits[0])
	}
}

func TestSearch_PropagatesStoreError(t *testing.T) {
	storeErr := &db.Error{Op: db.OpSearch, Err: errors.New("syntax error")}
	ms := &mockStore{searchFn: func(context.Context, *db.SearchQuery) (*db.SearchResult, error) {
		return nil, storeErr
	}}

	_, _, err := New(ms, "inv:").Search(context.Background(), query.Query{}, 10)
	if !errors.Is(err, storeErr) {
		t.Fatalf("err = %v", err)
	}
}

func TestRebuild(t *testing.T) {
	tests := []struct {
		name        string
		existing    bool
		wantDropped int
	}{
		{"existing index is dropped first", true, 1},
		{"missing index is only created", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := &mockStore{}
			repo := New(ms, "inv:")
			if tt.existing {
				if err := repo.EnsureIndex(context.Background()); err != nil {
					t.Fatal(err)
				}
			}

			if err := repo.Rebuild(context.Background()); err != nil {
				t.Fatalf("Rebuild: %v", err)
			}
			if len(ms.dropped) != tt.wantDropped {
				t.Errorf("dropped = %v, want %d drops", ms.dropped, tt.wantDropped)
			}
			if tt.existing && ms.dropped[0] != "inv:search" {
				t.Errorf("dropped %q, want inv:search", ms.dropped[0])
			}
			if ms.indexDef == nil {
				t.Error("index was not recreated")
			}
		})
	}
}

func TestCount(t *testing.T) {
	ms := &mockStore{}
	repo := New(ms, "inv:")
	for _, id := range []string{"a", "b"} {
		if err := repo.Put(context.Background(), testDoc(t, id, "N-"+id)); err != nil {
			t.Fatal(err)
		}
	}

	n, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}

	ms.countErr = errors.New("connection reset")
	if _, err := repo.Count(context.Background()); err == nil {
		t.Error("expected error")
	}
}
