package mapping

import (
	"context"

	dommap "github.com/kailas-cloud/invoicedex/internal/domain/mapping"
)

// Repository defines the storage contract for supplier mapping specs.
type Repository interface {
	Create(ctx context.Context, spec dommap.Spec) error
	Save(ctx context.Context, spec dommap.Spec) error
	GetBySupplier(ctx context.Context, supplierID string) (dommap.Spec, error)
	GetByID(ctx context.Context, id string) (dommap.Spec, error)
	ListUnmapped(ctx context.Context) ([]dommap.Spec, error)
}
