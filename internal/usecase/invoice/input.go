package invoice

import (
	"fmt"
	"io"

	"github.com/kailas-cloud/invoicedex/internal/domain"
)

// CreateInput is a single supplier invoice in JSON or XML.
// Filename, when set, selects the format by extension.
type CreateInput struct {
	SupplierID     string
	OrganizationID string
	Filename       string
	Payload        []byte
}

// BulkMapping selects how CSV rows are projected.
type BulkMapping string

// Bulk mapping modes.
const (
	// BulkMappingFixed uses the built-in column layout and ignores supplier specs.
	BulkMappingFixed BulkMapping = "fixed"
	// BulkMappingSupplier applies the supplier's mapping spec to every row.
	BulkMappingSupplier BulkMapping = "supplier"
)

// ParseBulkMapping reads a mapping mode. Empty means fixed.
func ParseBulkMapping(s string) (BulkMapping, error) {
	switch BulkMapping(s) {
	case "", BulkMappingFixed:
		return BulkMappingFixed, nil
	case BulkMappingSupplier:
		return BulkMappingSupplier, nil
	default:
		return "", fmt.Errorf("%w: unknown mapping mode %q", domain.ErrInvalidRequest, s)
	}
}

// BulkInput is a CSV upload with one invoice per row.
type BulkInput struct {
	SupplierID     string
	OrganizationID string
	Filename       string
	Body           io.Reader
	Mapping        BulkMapping
}

// BulkResult reports a joined bulk upload.
type BulkResult struct {
	Count        int
	Indexed      int
	DeadLettered []string
}

// ReindexResult reports a full re-projection of the canonical store.
type ReindexResult struct {
	Total        int
	Indexed      int
	DeadLettered []string
	Skipped      []string
}
