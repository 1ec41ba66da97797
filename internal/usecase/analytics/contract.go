package analytics

import (
	"context"

	"github.com/kailas-cloud/invoicedex/internal/domain/search/document"
	"github.com/kailas-cloud/invoicedex/internal/domain/search/query"
)

// Repository pulls raw matching documents from the index.
type Repository interface {
	Search(ctx context.Context, q query.Query, size int) ([]document.Hit, int, error)
}
