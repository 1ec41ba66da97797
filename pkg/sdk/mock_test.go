package invoicedex

import (
	"context"

	"github.com/kailas-cloud/invoicedex/internal/domain/deadletter"
	"github.com/kailas-cloud/invoicedex/internal/domain/search/query"
	healthuc "github.com/kailas-cloud/invoicedex/internal/usecase/health"
	invoiceuc "github.com/kailas-cloud/invoicedex/internal/usecase/invoice"
	searchuc "github.com/kailas-cloud/invoicedex/internal/usecase/search"
)

// --- invoiceUseCase mock ---

type mockInvoiceUC struct {
	bulkFn    func(ctx context.Context, in invoiceuc.BulkInput) (invoiceuc.BulkResult, error)
	reindexFn func(ctx context.Context, pageSize int, progress func(done, total int)) (invoiceuc.ReindexResult, error)
}

func (m *mockInvoiceUC) BulkCreate(ctx context.Context, in invoiceuc.BulkInput) (invoiceuc.BulkResult, error) {
	return m.bulkFn(ctx, in)
}

func (m *mockInvoiceUC) Reindex(
	ctx context.Context, pageSize int, progress func(done, total int),
) (invoiceuc.ReindexResult, error) {
	return m.reindexFn(ctx, pageSize, progress)
}

// --- searchUseCase mock ---

type mockSearchUC struct {
	previewFn func(p searchuc.Params) (query.Query, error)
	executeFn func(ctx context.Context, q query.Query) (searchuc.Page, error)
}

func (m *mockSearchUC) Preview(p searchuc.Params) (query.Query, error) {
	return m.previewFn(p)
}

func (m *mockSearchUC) ExecuteCompiled(ctx context.Context, q query.Query) (searchuc.Page, error) {
	return m.executeFn(ctx, q)
}

// --- deadLetterStore mock ---

type mockDeadLetters struct {
	listFn   func(ctx context.Context) ([]deadletter.Entry, error)
	removeFn func(ctx context.Context, invoiceID string) error
}

func (m *mockDeadLetters) List(ctx context.Context) ([]deadletter.Entry, error) {
	return m.listFn(ctx)
}

func (m *mockDeadLetters) Remove(ctx context.Context, invoiceID string) error {
	return m.removeFn(ctx, invoiceID)
}

// --- indexAdmin mock ---

type mockIndex struct {
	rebuilt int
	count   int
	err     error
}

func (m *mockIndex) Rebuild(context.Context) error {
	m.rebuilt++
	return m.err
}

func (m *mockIndex) Count(context.Context) (int, error) { return m.count, m.err }

// --- pinger / healthUseCase mocks ---

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error { return m.err }

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }
