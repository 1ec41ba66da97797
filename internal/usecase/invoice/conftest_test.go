package invoice

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kailas-cloud/invoicedex/internal/domain"
	dominv "github.com/kailas-cloud/invoicedex/internal/domain/invoice"
	"github.com/kailas-cloud/invoicedex/internal/domain/source"
	"github.com/kailas-cloud/invoicedex/internal/usecase/indexing"
)

// --- Mocks ---

type mockRepo struct {
	mu        sync.Mutex
	records   map[string]dominv.Record
	createErr error
	saveErr   error
	batches   int
}

func newMockRepo(recs ...dominv.Record) *mockRepo {
	m := &mockRepo{records: make(map[string]dominv.Record)}
	for _, r := range recs {
		m.records[r.ID()] = r
	}
	return m
}

func (m *mockRepo) Create(_ context.Context, rec dominv.Record) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID()] = rec
	return nil
}

func (m *mockRepo) CreateMany(_ context.Context, recs []dominv.Record) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches++
	for _, r := range recs {
		m.records[r.ID()] = r
	}
	return nil
}

func (m *mockRepo) Get(_ context.Context, id string) (dominv.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return dominv.Record{}, domain.ErrNotFound
	}
	return r, nil
}

func (m *mockRepo) Save(_ context.Context, rec dominv.Record) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID()] = rec
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *mockRepo) filter(keep func(*dominv.Record) bool) []dominv.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []dominv.Record
	for _, r := range m.records {
		if keep(&r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (m *mockRepo) ListByIssuer(_ context.Context, issuer string) ([]dominv.Record, error) {
	return m.filter(func(r *dominv.Record) bool { return r.Issuer() == issuer }), nil
}

func (m *mockRepo) ListByRecipient(_ context.Context, recipient string) ([]dominv.Record, error) {
	return m.filter(func(r *dominv.Record) bool { return r.Recipient() == recipient }), nil
}

func (m *mockRepo) ListArchived(_ context.Context, recipient string) ([]dominv.Record, error) {
	return m.filter(func(r *dominv.Record) bool { return r.Recipient() == recipient && r.Archived() }), nil
}

func (m *mockRepo) ListPage(_ context.Context, offset, limit int) ([]dominv.Record, int, error) {
	all := m.filter(func(*dominv.Record) bool { return true })
	if offset >= len(all) {
		return nil, len(all), nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], len(all), nil
}

type mockNormalizer struct {
	normalizeFn func(doc source.Document, supplierID string) (dominv.Canonical, error)
	rowFn       func(row source.Row) (dominv.Canonical, error)
	supplierRow int
}

func (m *mockNormalizer) Normalize(_ context.Context, doc source.Document, supplierID string) (dominv.Canonical, error) {
	if m.normalizeFn != nil {
		return m.normalizeFn(doc, supplierID)
	}
	return canonical("INV-1", "2024-01-01"), nil
}

func (m *mockNormalizer) NormalizeRow(row source.Row) (dominv.Canonical, error) {
	if m.rowFn != nil {
		return m.rowFn(row)
	}
	return canonical(row.Fields["InvoiceNumber"], "2024-01-01"), nil
}

func (m *mockNormalizer) NormalizeRowWithSupplier(_ context.Context, row source.Row, _ string) (dominv.Canonical, error) {
	m.supplierRow++
	return m.NormalizeRow(row)
}

type mockIndexer struct {
	mu        sync.Mutex
	one       []indexing.Job
	many      [][]indexing.Job
	removed   []string
	removeErr error
	dead      []string
}

func (m *mockIndexer) IndexOne(_ context.Context, job indexing.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.one = append(m.one, job)
}

func (m *mockIndexer) IndexMany(_ context.Context, jobs []indexing.Job) indexing.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.many = append(m.many, jobs)
	return indexing.Result{Indexed: len(jobs) - len(m.dead), DeadLettered: m.dead}
}

func (m *mockIndexer) Remove(_ context.Context, id string) error {
	m.removed = append(m.removed, id)
	return m.removeErr
}

func canonical(number, date string) dominv.Canonical {
	return dominv.Canonical{Header: dominv.Header{InvoiceNumber: number, InvoiceDate: date, DueDate: date}}
}

func storedRecord(issuer, recipient string) dominv.Record {
	c := canonical("INV-9", "2024-02-02")
	rec, err := dominv.NewRecord(issuer, recipient, "{}", &c, time.Now())
	if err != nil {
		panic(err)
	}
	return rec
}
