package chi

import (
	"context"

	dominv "github.com/kailas-cloud/invoicedex/internal/domain/invoice"
	dommap "github.com/kailas-cloud/invoicedex/internal/domain/mapping"
	"github.com/kailas-cloud/invoicedex/internal/domain/search/document"
	"github.com/kailas-cloud/invoicedex/internal/domain/search/query"
	analyticsuc "github.com/kailas-cloud/invoicedex/internal/usecase/analytics"
	healthuc "github.com/kailas-cloud/invoicedex/internal/usecase/health"
	invoiceuc "github.com/kailas-cloud/invoicedex/internal/usecase/invoice"
	searchuc "github.com/kailas-cloud/invoicedex/internal/usecase/search"
)

// InvoiceService is the invoice lifecycle the HTTP layer drives.
type InvoiceService interface {
	Create(ctx context.Context, in invoiceuc.CreateInput) (dominv.Record, error)
	BulkCreate(ctx context.Context, in invoiceuc.BulkInput) (invoiceuc.BulkResult, error)
	ListByIssuer(ctx context.Context, supplierID string) ([]dominv.Record, error)
	ListByRecipient(ctx context.Context, organizationID string) ([]dominv.Record, error)
	ListArchived(ctx context.Context, userID string) ([]dominv.Record, error)
	Archive(ctx context.Context, invoiceID, userID string) (dominv.Record, error)
	Restore(ctx context.Context, invoiceID, userID string) (dominv.Record, error)
	Delete(ctx context.Context, invoiceID string) error
}

// TemplateService manages supplier mapping specs.
type TemplateService interface {
	Upload(ctx context.Context, supplierID, templateName string, content []byte) (dommap.Spec, error)
	UpdateMapping(ctx context.Context, templateID, adminID string, rules []byte) (dommap.Spec, error)
	GetBySupplier(ctx context.Context, supplierID string) (dommap.Spec, error)
	ListUnmapped(ctx context.Context) ([]dommap.Spec, error)
}

// SearchService runs structured invoice queries.
type SearchService interface {
	Search(ctx context.Context, p searchuc.Params) ([]document.Hit, error)
	Preview(p searchuc.Params) (query.Query, error)
	ExecuteCompiled(ctx context.Context, q query.Query) (searchuc.Page, error)
	OrganizationProducts(ctx context.Context, p searchuc.Params) ([]searchuc.Product, error)
}

// AnalyticsService produces spend and price reports.
type AnalyticsService interface {
	PriceDeviations(ctx context.Context, p analyticsuc.ProductParams) ([]analyticsuc.PriceDeviation, error)
	SuppliersPriceByMonth(ctx context.Context, p analyticsuc.ProductParams) ([]analyticsuc.SupplierMonthlyPrices, error)
	SupplierExpenditures(ctx context.Context, organizationID string, year int) ([]analyticsuc.SupplierExpenditure, error)
	MonthlyExpenditures(ctx context.Context, organizationID string, year *int) ([]analyticsuc.MonthlyExpenditure, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
