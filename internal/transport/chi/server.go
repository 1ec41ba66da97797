package chi

import (
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/invoicedex/internal/logger"
	healthuc "github.com/kailas-cloud/invoicedex/internal/usecase/health"
)

// DefaultMaxUploadBytes caps request bodies when no limit is configured.
const DefaultMaxUploadBytes = 32 << 20

// Options tunes request handling.
type Options struct {
	RoleHeader     string
	MaxUploadBytes int64
}

// Server serves the invoice HTTP API.
type Server struct {
	invoices      InvoiceService
	templates     TemplateService
	search        SearchService
	analytics     AnalyticsService
	health        HealthChecker
	logger        *zap.Logger
	roleHeader    string
	maxUpload     int64
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	invoices InvoiceService,
	templates TemplateService,
	search SearchService,
	analytics AnalyticsService,
	health HealthChecker,
	logger *zap.Logger,
	opts Options,
) *Server {
	if opts.RoleHeader == "" {
		opts.RoleHeader = DefaultRoleHeader
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &Server{
		invoices:      invoices,
		templates:     templates,
		search:        search,
		analytics:     analytics,
		health:        health,
		logger:        logger,
		roleHeader:    opts.RoleHeader,
		maxUpload:     opts.MaxUploadBytes,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Register mounts every route on r.
func (s *Server) Register(r gochi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	supplier := s.role(RoleSupplier)
	organization := s.role(RoleOrganization)
	party := s.role(RoleSupplier, RoleOrganization)
	admin := s.role(RoleAdmin)

	r.Route("/invoices", func(r gochi.Router) {
		r.With(supplier).Post("/", s.CreateInvoice)
		r.With(supplier).Post("/bulk", s.BulkCreateInvoices)
		r.With(supplier).Get("/supplier/{supplierID}", s.ListSupplierInvoices)
		r.With(organization).Get("/organization/{organizationID}", s.ListOrganizationInvoices)
		r.With(organization).Get("/archived/{userID}", s.ListArchivedInvoices)
		r.With(party).Put("/{invoiceID}/archive/{userID}", s.ArchiveInvoice)
		r.With(party).Post("/{invoiceID}/restore/{userID}", s.RestoreInvoice)
		r.With(admin).Delete("/{invoiceID}", s.DeleteInvoice)
	})

	r.Route("/templates", func(r gochi.Router) {
		r.With(supplier).Post("/", s.UploadTemplate)
		r.With(supplier).Get("/supplier/{supplierID}", s.GetSupplierTemplate)
		r.With(admin).Get("/unmapped", s.ListUnmappedTemplates)
		r.With(admin).Put("/{templateID}/mapping", s.UpdateTemplateMapping)
	})

	r.Route("/search", func(r gochi.Router) {
		r.With(organization).Get("/invoices", s.SearchInvoices)
		r.With(organization).Get("/products", s.ListOrganizationProducts)
		r.With(admin).Post("/build-query", s.BuildQuery)
		r.With(admin).Post("/execute", s.ExecuteSearch)
	})

	r.Route("/analytics", func(r gochi.Router) {
		r.Use(organization)
		r.Get("/product-price-deviations", s.ProductPriceDeviations)
		r.Get("/supplier-expenditures", s.SupplierExpenditures)
		r.Get("/monthly-expenditure", s.MonthlyExpenditure)
		r.Get("/suppliers-price-by-month", s.SuppliersPriceByMonth)
	})
}

// Handler returns a router with every route mounted.
func (s *Server) Handler() http.Handler {
	r := gochi.NewRouter()
	s.Register(r)
	return r
}

func (s *Server) role(allowed ...Role) func(http.Handler) http.Handler {
	return RequireRole(s.roleHeader, allowed...)
}

// requestLogger prefers the per-request logger installed by the router middleware.
func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	return logpkg.FromContextOr(r.Context(), s.logger)
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}
