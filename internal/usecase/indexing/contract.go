package indexing

import (
	"context"

	"github.com/kailas-cloud/invoicedex/internal/domain/deadletter"
	"github.com/kailas-cloud/invoicedex/internal/domain/search/document"
)

// DocumentWriter writes and removes index documents.
type DocumentWriter interface {
	Put(ctx context.Context, doc document.Document) error
	Delete(ctx context.Context, invoiceID string) error
}

// DeadLetterWriter records invoices whose index write failed permanently.
type DeadLetterWriter interface {
	Put(ctx context.Context, e deadletter.Entry) error
}
