package normalize

import (
	"context"

	"github.com/kailas-cloud/invoicedex/internal/domain/mapping"
)

// SpecReader looks up a supplier's mapping spec.
type SpecReader interface {
	GetBySupplier(ctx context.Context, supplierID string) (mapping.Spec, error)
}
