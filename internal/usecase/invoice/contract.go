package invoice

import (
	"context"

	dominv "github.com/kailas-cloud/invoicedex/internal/domain/invoice"
	"github.com/kailas-cloud/invoicedex/internal/domain/source"
	"github.com/kailas-cloud/invoicedex/internal/usecase/indexing"
)

// Repository defines the canonical store contract for invoice records.
type Repository interface {
	Create(ctx context.Context, rec dominv.Record) error
	CreateMany(ctx context.Context, recs []dominv.Record) error
	Get(ctx context.Context, id string) (dominv.Record, error)
	Save(ctx context.Context, rec dominv.Record) error
	Delete(ctx context.Context, id string) error
	ListByIssuer(ctx context.Context, issuer string) ([]dominv.Record, error)
	ListByRecipient(ctx context.Context, recipient string) ([]dominv.Record, error)
	ListArchived(ctx context.Context, recipient string) ([]dominv.Record, error)
	ListPage(ctx context.Context, offset, limit int) ([]dominv.Record, int, error)
}

// Normalizer projects parsed payloads into canonical invoices.
type Normalizer interface {
	Normalize(ctx context.Context, doc source.Document, supplierID string) (dominv.Canonical, error)
	NormalizeRow(row source.Row) (dominv.Canonical, error)
	NormalizeRowWithSupplier(ctx context.Context, row source.Row, supplierID string) (dominv.Canonical, error)
}

// Indexer writes index documents off the request path.
type Indexer interface {
	IndexOne(ctx context.Context, job indexing.Job)
	IndexMany(ctx context.Context, jobs []indexing.Job) indexing.Result
	Remove(ctx context.Context, invoiceID string) error
}
