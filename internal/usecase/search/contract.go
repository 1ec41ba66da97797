package search

import (
	"context"

	"github.com/kailas-cloud/invoicedex/internal/domain/search/document"
	"github.com/kailas-cloud/invoicedex/internal/domain/search/query"
)

// Repository defines the index contract for search operations.
type Repository interface {
	Search(ctx context.Context, q query.Query, size int) ([]document.Hit, int, error)
}
