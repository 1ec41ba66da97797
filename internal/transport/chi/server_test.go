package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/invoicedex/internal/domain"
	dominv "github.com/kailas-cloud/invoicedex/internal/domain/invoice"
	dommap "github.com/kailas-cloud/invoicedex/internal/domain/mapping"
	"github.com/kailas-cloud/invoicedex/internal/domain/search/document"
	"github.com/kailas-cloud/invoicedex/internal/domain/search/query"
	"github.com/kailas-cloud/invoicedex/internal/transport/xlsx"
	analyticsuc "github.com/kailas-cloud/invoicedex/internal/usecase/analytics"
	healthuc "github.com/kailas-cloud/invoicedex/internal/usecase/health"
	invoiceuc "github.com/kailas-cloud/invoicedex/internal/usecase/invoice"
	searchuc "github.com/kailas-cloud/invoicedex/internal/usecase/search"
)

// --- Mocks ---

type mockInvoices struct {
	created    invoiceuc.CreateInput
	bulk       invoiceuc.BulkInput
	bulkBody   string
	bulkResult invoiceuc.BulkResult
	record     dominv.Record
	records    []dominv.Record
	deleted    string
	err        error
}

func (m *mockInvoices) Create(_ context.Context, in invoiceuc.CreateInput) (dominv.Record, error) {
	m.created = in
	return m.record, m.err
}

func (m *mockInvoices) BulkCreate(_ context.Context, in invoiceuc.BulkInput) (invoiceuc.BulkResult, error) {
	m.bulk = in
	if in.Body != nil {
		data, _ := io.ReadAll(in.Body)
		m.bulkBody = string(data)
	}
	return m.bulkResult, m.err
}

func (m *mockInvoices) ListByIssuer(context.Context, string) ([]dominv.Record, error) {
	return m.records, m.err
}

func (m *mockInvoices) ListByRecipient(context.Context, string) ([]dominv.Record, error) {
	return m.records, m.err
}

func (m *mockInvoices) ListArchived(context.Context, string) ([]dominv.Record, error) {
	return m.records, m.err
}

func (m *mockInvoices) Archive(context.Context, string, string) (dominv.Record, error) {
	return m.record, m.err
}

func (m *mockInvoices) Restore(context.Context, string, string) (dominv.Record, error) {
	return m.record, m.err
}

func (m *mockInvoices) Delete(_ context.Context, id string) error {
	m.deleted = id
	return m.err
}

type mockTemplates struct {
	uploadName string
	uploadData string
	adminID    string
	rules      string
	spec       dommap.Spec
	specs      []dommap.Spec
	err        error
}

func (m *mockTemplates) Upload(_ context.Context, _, name string, content []byte) (dommap.Spec, error) {
	m.uploadName, m.uploadData = name, string(content)
	return m.spec, m.err
}

func (m *mockTemplates) UpdateMapping(_ context.Context, _, adminID string, rules []byte) (dommap.Spec, error) {
	m.adminID, m.rules = adminID, string(rules)
	return m.spec, m.err
}

func (m *mockTemplates) GetBySupplier(context.Context, string) (dommap.Spec, error) {
	return m.spec, m.err
}

func (m *mockTemplates) ListUnmapped(context.Context) ([]dommap.Spec, error) {
	return m.specs, m.err
}

type mockSearch struct {
	params   searchuc.Params
	hits     []document.Hit
	page     searchuc.Page
	executed *query.Query
	err      error
}

func (m *mockSearch) Search(_ context.Context, p searchuc.Params) ([]document.Hit, error) {
	m.params = p
	return m.hits, m.err
}

func (m *mockSearch) Preview(p searchuc.Params) (query.Query, error) {
	return searchuc.BuildAdvanced(p)
}

func (m *mockSearch) ExecuteCompiled(_ context.Context, q query.Query) (searchuc.Page, error) {
	m.executed = &q
	return m.page, m.err
}

func (m *mockSearch) OrganizationProducts(_ context.Context, p searchuc.Params) ([]searchuc.Product, error) {
	m.params = p
	return []searchuc.Product{{Description: "Widget", Currency: "USD", Years: []int{2024}}}, m.err
}

type mockAnalytics struct {
	year    *int
	product analyticsuc.ProductParams
	err     error
}

func (m *mockAnalytics) PriceDeviations(_ context.Context, p analyticsuc.ProductParams) ([]analyticsuc.PriceDeviation, error) {
	m.product = p
	return []analyticsuc.PriceDeviation{{Month: 1, Price: 10, OverallAvgPrice: 10}}, m.err
}

func (m *mockAnalytics) SuppliersPriceByMonth(
	_ context.Context, p analyticsuc.ProductParams,
) ([]analyticsuc.SupplierMonthlyPrices, error) {
	m.product = p
	return []analyticsuc.SupplierMonthlyPrices{}, m.err
}

func (m *mockAnalytics) SupplierExpenditures(_ context.Context, _ string, year int) ([]analyticsuc.SupplierExpenditure, error) {
	m.year = &year
	return []analyticsuc.SupplierExpenditure{{SupplierName: "Acme", TotalAmount: 10}}, m.err
}

func (m *mockAnalytics) MonthlyExpenditures(_ context.Context, _ string, year *int) ([]analyticsuc.MonthlyExpenditure, error) {
	m.year = year
	return []analyticsuc.MonthlyExpenditure{{Month: "2024-01", TotalExpenditure: 10}}, m.err
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

// --- Helpers ---

type fixture struct {
	invoices  *mockInvoices
	templates *mockTemplates
	search    *mockSearch
	analytics *mockAnalytics
	health    *mockHealth
	handler   http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		invoices:  &mockInvoices{},
		templates: &mockTemplates{},
		search:    &mockSearch{},
		analytics: &mockAnalytics{},
		health:    &mockHealth{report: healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{}}},
	}
	srv := NewServer(f.invoices, f.templates, f.search, f.analytics, f.health, zap.NewNop(), Options{MaxUploadBytes: 1 << 16})
	f.handler = srv.Handler()
	return f
}

func (f *fixture) do(req *http.Request, role Role) *httptest.ResponseRecorder {
	if role != "" {
		req.Header.Set(DefaultRoleHeader, string(role))
	}
	return serve(f.handler, req)
}

func record(t *testing.T) dominv.Record {
	t.Helper()
	c := &dominv.Canonical{Header: dominv.Header{InvoiceNumber: "INV-1"}}
	rec, err := dominv.NewRecord("sup-1", "org-1", `{"n":"INV-1"}`, c, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	return rec
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, fileField, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, filename)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write([]byte(content))
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp
}

// --- Tests ---

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name   string
		status healthuc.Status
		want   int
	}{
		{"healthy", healthuc.Healthy, http.StatusOK},
		{"degraded", healthuc.Degraded, http.StatusServiceUnavailable},
		{"unhealthy", healthuc.Unhealthy, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.health.report = healthuc.Report{
				Status: tt.status,
				Checks: map[string]healthuc.CheckResult{healthuc.ComponentIndex: healthuc.CheckOK},
			}
			rr := f.do(httptest.NewRequest("GET", "/health", http.NoBody), "")
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp.Status != string(tt.status) || resp.Checks["index"] != "ok" {
				t.Errorf("body = %+v", resp)
			}
		})
	}
}

func TestRoutes_RequireRole(t *testing.T) {
	f := newFixture(t)

	rr := f.do(httptest.NewRequest("DELETE", "/invoices/inv-1", http.NoBody), RoleSupplier)
	if rr.Code != http.StatusForbidden {
		t.Errorf("supplier delete: status = %d, want 403", rr.Code)
	}
	if f.invoices.deleted != "" {
		t.Error("service called despite role rejection")
	}

	rr = f.do(httptest.NewRequest("GET", "/analytics/monthly-expenditure?organization_id=o", http.NoBody), "")
	if rr.Code != http.StatusForbidden {
		t.Errorf("no role: status = %d, want 403", rr.Code)
	}
}

func TestCreateInvoice_JSONStringPayload(t *testing.T) {
	f := newFixture(t)
	f.invoices.record = record(t)

	body := `{"supplier_id":"sup-1","organization_id":"org-1","source_invoice":"<inv><n>1</n></inv>"}`
	rr := f.do(httptest.NewRequest("POST", "/invoices", strings.NewReader(body)), RoleSupplier)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body)
	}
	if got := string(f.invoices.created.Payload); got != "<inv><n>1</n></inv>" {
		t.Errorf("payload = %q, want unwrapped string", got)
	}
	var inv Invoice
	if err := json.NewDecoder(rr.Body).Decode(&inv); err != nil {
		t.Fatal(err)
	}
	if inv.ID != f.invoices.record.ID() || inv.Issuer != "sup-1" || len(inv.InternalFormat) == 0 {
		t.Errorf("invoice = %+v", inv)
	}
}

func TestCreateInvoice_JSONObjectPayload(t *testing.T) {
	f := newFixture(t)
	f.invoices.record = record(t)

	body := `{"supplier_id":"sup-1","organization_id":"org-1","source_invoice":{"n":"1"}}`
	rr := f.do(httptest.NewRequest("POST", "/invoices", strings.NewReader(body)), RoleSupplier)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := string(f.invoices.created.Payload); got != `{"n":"1"}` {
		t.Errorf("payload = %q", got)
	}
}

func TestCreateInvoice_MultipartFile(t *testing.T) {
	f := newFixture(t)
	f.invoices.record = record(t)

	req := multipartRequest(t, "POST", "/invoices",
		map[string]string{"supplier_id": "sup-1", "organization_id": "org-1"},
		"source_invoice", "inv.xml", "<inv/>")
	rr := f.do(req, RoleSupplier)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body)
	}
	if f.invoices.created.Filename != "inv.xml" || string(f.invoices.created.Payload) != "<inv/>" {
		t.Errorf("input = %+v", f.invoices.created)
	}
}

func TestCreateInvoice_DomainErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
		code ErrorCode
	}{
		{"no mapping", domain.ErrMappingSpecNotFound, http.StatusNotFound, CodeMappingNotFound},
		{"malformed", domain.ErrMalformedSourceDocument, http.StatusBadRequest, CodeMalformedSource},
		{"storage", errors.New("redis: connection refused"), http.StatusInternalServerError, CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.invoices.err = tt.err
			rr := f.do(httptest.NewRequest("POST", "/invoices", strings.NewReader(`{"source_invoice":"{}"}`)), RoleSupplier)
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
			resp := decodeError(t, rr)
			if resp.Code != tt.code {
				t.Errorf("code = %s, want %s", resp.Code, tt.code)
			}
			if strings.Contains(resp.Message, "redis") {
				t.Errorf("message leaks internals: %q", resp.Message)
			}
		})
	}
}

func TestCreateInvoice_BadJSON(t *testing.T) {
	f := newFixture(t)
	rr := f.do(httptest.NewRequest("POST", "/invoices", strings.NewReader(`{`)), RoleSupplier)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestCreateInvoice_PayloadTooLarge(t *testing.T) {
	f := newFixture(t)
	big := `{"source_invoice":"` + strings.Repeat("x", 1<<17) + `"}`
	rr := f.do(httptest.NewRequest("POST", "/invoices", strings.NewReader(big)), RoleSupplier)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rr.Code)
	}
}

func TestBulkCreateInvoices(t *testing.T) {
	f := newFixture(t)
	f.invoices.bulkResult = invoiceuc.BulkResult{Count: 3, Indexed: 3}

	req := multipartRequest(t, "POST", "/invoices/bulk",
		map[string]string{"supplier_id": "sup-1", "organization_id": "org-1", "mapping": "Supplier"},
		"source_invoice", "batch.csv", "InvoiceNumber\nA\nB\nC\n")
	rr := f.do(req, RoleSupplier)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body)
	}
	var resp BulkResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Success != "3 invoices uploaded successfully." || resp.DeadLettered == nil {
		t.Errorf("resp = %+v", resp)
	}
	if f.invoices.bulk.Mapping != invoiceuc.BulkMappingSupplier || f.invoices.bulk.Filename != "batch.csv" {
		t.Errorf("input = %+v", f.invoices.bulk)
	}
	if !strings.HasPrefix(f.invoices.bulkBody, "InvoiceNumber") {
		t.Errorf("body = %q", f.invoices.bulkBody)
	}
}

func TestBulkCreateInvoices_Errors(t *testing.T) {
	t.Run("unsupported format", func(t *testing.T) {
		f := newFixture(t)
		f.invoices.err = domain.ErrUnsupportedFileFormat
		req := multipartRequest(t, "POST", "/invoices/bulk", nil, "source_invoice", "batch.xlsx", "x")
		if rr := f.do(req, RoleSupplier); rr.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rr.Code)
		}
	})
	t.Run("missing file", func(t *testing.T) {
		f := newFixture(t)
		req := multipartRequest(t, "POST", "/invoices/bulk", map[string]string{"supplier_id": "s"}, "", "", "")
		if rr := f.do(req, RoleSupplier); rr.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rr.Code)
		}
	})
	t.Run("unknown mapping mode", func(t *testing.T) {
		f := newFixture(t)
		req := multipartRequest(t, "POST", "/invoices/bulk", map[string]string{"mapping": "magic"},
			"source_invoice", "a.csv", "x")
		if rr := f.do(req, RoleSupplier); rr.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rr.Code)
		}
	})
	t.Run("not multipart", func(t *testing.T) {
		f := newFixture(t)
		if rr := f.do(httptest.NewRequest("POST", "/invoices/bulk", strings.NewReader("a,b")), RoleSupplier); rr.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rr.Code)
		}
	})
}

func TestListSupplierInvoices_Wrapped(t *testing.T) {
	f := newFixture(t)
	f.invoices.records = []dominv.Record{record(t)}

	rr := f.do(httptest.NewRequest("GET", "/invoices/supplier/sup-1", http.NoBody), RoleSupplier)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp InvoiceList
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Invoices) != 1 {
		t.Errorf("invoices = %d", len(resp.Invoices))
	}
}

func TestArchiveInvoice(t *testing.T) {
	f := newFixture(t)
	rec := record(t)
	rec.Archive("org-1", time.Now())
	f.invoices.record = rec

	rr := f.do(httptest.NewRequest("PUT", "/invoices/"+rec.ID()+"/archive/org-1", http.NoBody), RoleOrganization)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var inv Invoice
	if err := json.NewDecoder(rr.Body).Decode(&inv); err != nil {
		t.Fatal(err)
	}
	if !inv.Archived || inv.ArchivedBy != "org-1" || inv.ArchivedAt == nil {
		t.Errorf("invoice = %+v", inv)
	}
}

func TestArchiveInvoice_Forbidden(t *testing.T) {
	f := newFixture(t)
	f.invoices.err = domain.ErrForbidden

	rr := f.do(httptest.NewRequest("POST", "/invoices/inv-1/restore/stranger", http.NoBody), RoleSupplier)
	if rr.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rr.Code)
	}
}

func TestDeleteInvoice(t *testing.T) {
	f := newFixture(t)

	rr := f.do(httptest.NewRequest("DELETE", "/invoices/inv-9", http.NoBody), RoleAdmin)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if f.invoices.deleted != "inv-9" {
		t.Errorf("deleted = %q", f.invoices.deleted)
	}

	f.invoices.err = domain.ErrNotFound
	if rr := f.do(httptest.NewRequest("DELETE", "/invoices/missing", http.NoBody), RoleAdmin); rr.Code != http.StatusNotFound {
		t.Errorf("missing: status = %d, want 404", rr.Code)
	}
}

func TestUploadTemplate(t *testing.T) {
	f := newFixture(t)
	spec, err := dommap.NewSpec("sup-1", "tpl.json", `{"a":1}`, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	f.templates.spec = spec

	req := multipartRequest(t, "POST", "/templates", map[string]string{"supplier_id": "sup-1"},
		"template", "tpl.json", `{"a":1}`)
	rr := f.do(req, RoleSupplier)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body)
	}
	if f.templates.uploadName != "tpl.json" || f.templates.uploadData != `{"a":1}` {
		t.Errorf("upload = %q %q", f.templates.uploadName, f.templates.uploadData)
	}
	var tpl Template
	if err := json.NewDecoder(rr.Body).Decode(&tpl); err != nil {
		t.Fatal(err)
	}
	if tpl.MappedStatus || string(tpl.Mapping) != "null" {
		t.Errorf("template = %+v", tpl)
	}

	f.templates.err = domain.ErrAlreadyExists
	req = multipartRequest(t, "POST", "/templates", map[string]string{"supplier_id": "sup-1"}, "template", "t.json", "{}")
	if rr := f.do(req, RoleSupplier); rr.Code != http.StatusConflict {
		t.Errorf("duplicate: status = %d, want 409", rr.Code)
	}
}

func TestUpdateTemplateMapping(t *testing.T) {
	f := newFixture(t)
	spec, _ := dommap.NewSpec("sup-1", "tpl.json", "{}", time.Now())
	rules, err := dommap.ParseRules([]byte(`{"header.invoice_number":"no"}`))
	if err != nil {
		t.Fatal(err)
	}
	spec.ApplyMapping(rules, "admin-1", time.Now())
	f.templates.spec = spec

	body := `{"admin_id":"admin-1","mapping":{"header.invoice_number":"no"}}`
	rr := f.do(httptest.NewRequest("PUT", "/templates/"+spec.ID()+"/mapping", strings.NewReader(body)), RoleAdmin)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body)
	}
	if f.templates.adminID != "admin-1" || f.templates.rules != `{"header.invoice_number":"no"}` {
		t.Errorf("update = %q %q", f.templates.adminID, f.templates.rules)
	}
	var tpl Template
	if err := json.NewDecoder(rr.Body).Decode(&tpl); err != nil {
		t.Fatal(err)
	}
	if !tpl.MappedStatus || !strings.Contains(string(tpl.Mapping), "header.invoice_number") {
		t.Errorf("template = %+v", tpl)
	}

	f.templates.err = domain.ErrInvalidMappingSpec
	if rr := f.do(httptest.NewRequest("PUT", "/templates/x/mapping", strings.NewReader(body)), RoleAdmin); rr.Code != http.StatusBadRequest {
		t.Errorf("invalid spec: status = %d, want 400", rr.Code)
	}
}

func TestListUnmappedTemplates(t *testing.T) {
	f := newFixture(t)
	f.templates.specs = []dommap.Spec{}

	rr := f.do(httptest.NewRequest("GET", "/templates/unmapped", http.NoBody), RoleAdmin)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != `{"unmapped_templates":[]}` {
		t.Errorf("body = %s", got)
	}
}

func TestSearchInvoices(t *testing.T) {
	f := newFixture(t)
	f.search.hits = []document.Hit{{ID: "inv-1", Document: document.Document{InvoiceNumber: "INV-1"}}}

	rr := f.do(httptest.NewRequest("GET",
		"/search/invoices?organization_id=org-1&currency=USD&total_amount_min=10&size=5", http.NoBody), RoleOrganization)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body)
	}
	p := f.search.params
	if p.OrganizationID != "org-1" || p.Currency != "USD" || p.TotalAmountMin != "10" || p.Size != 5 {
		t.Errorf("params = %+v", p)
	}
	var hits []SearchHit
	if err := json.NewDecoder(rr.Body).Decode(&hits); err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].ID != "inv-1" || hits[0].Source.InvoiceNumber != "INV-1" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestSearchInvoices_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		want   int
	}{
		{"bad size", "/search/invoices?size=ten", nil, http.StatusBadRequest},
		{"empty", "/search/invoices?currency=USD", domain.ErrEmptyResultSet, http.StatusNotFound},
		{"index down", "/search/invoices", domain.ErrQueryExecutionFailure, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.search.err = tt.err
			if rr := f.do(httptest.NewRequest("GET", tt.target, http.NoBody), RoleOrganization); rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestBuildQuery_ThenExecute(t *testing.T) {
	f := newFixture(t)
	f.search.page = searchuc.Page{Total: 1, Hits: []document.Hit{{ID: "inv-1", Document: document.Document{Currency: "USD"}}}}

	rr := f.do(httptest.NewRequest("POST", "/search/build-query",
		strings.NewReader(`{"currency":"USD","supplier_name":"Acme"}`)), RoleAdmin)
	if rr.Code != http.StatusOK {
		t.Fatalf("build: status = %d, body = %s", rr.Code, rr.Body)
	}
	preview := rr.Body.String()
	if !strings.Contains(preview, `"must":[{`) || !strings.Contains(preview, `"filter":[]`) {
		t.Errorf("preview = %s, want every clause under must", preview)
	}

	rr = f.do(httptest.NewRequest("POST", "/search/execute", strings.NewReader(preview)), RoleAdmin)
	if rr.Code != http.StatusOK {
		t.Fatalf("execute: status = %d, body = %s", rr.Code, rr.Body)
	}
	if f.search.executed == nil || len(f.search.executed.Must()) != 2 {
		t.Fatalf("executed = %+v", f.search.executed)
	}
	var resp map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	results, _ := resp["results"].([]any)
	if resp["total"] != float64(1) || len(results) != 1 {
		t.Fatalf("resp = %v", resp)
	}
	first, _ := results[0].(map[string]any)
	if first["_id"] != "inv-1" || first["currency"] != "USD" {
		t.Errorf("result = %v, want flattened document with _id", first)
	}
}

func TestExecuteSearch_MalformedQuery(t *testing.T) {
	f := newFixture(t)
	body := `{"query":{"query":{"bool":{"must":[{"wildcard":{"currency":"U*"}}]}}}}`

	rr := f.do(httptest.NewRequest("POST", "/search/execute", strings.NewReader(body)), RoleAdmin)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
	if f.search.executed != nil {
		t.Error("malformed query reached the index")
	}
}

func TestListOrganizationProducts(t *testing.T) {
	f := newFixture(t)
	rr := f.do(httptest.NewRequest("GET", "/search/products?organization_id=org-1", http.NoBody), RoleOrganization)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if f.search.params.OrganizationID != "org-1" {
		t.Errorf("params = %+v", f.search.params)
	}
}

func TestAnalytics_ProductReports(t *testing.T) {
	for _, path := range []string{"/analytics/product-price-deviations", "/analytics/suppliers-price-by-month"} {
		t.Run(path, func(t *testing.T) {
			f := newFixture(t)
			rr := f.do(httptest.NewRequest("GET", path+"?organization_id=o&product_name=Widget&year=2024", http.NoBody),
				RoleOrganization)
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", rr.Code, rr.Body)
			}
			if f.analytics.product != (analyticsuc.ProductParams{OrganizationID: "o", ProductName: "Widget", Year: 2024}) {
				t.Errorf("params = %+v", f.analytics.product)
			}

			for _, q := range []string{"?organization_id=o&product_name=W", "?organization_id=o&product_name=W&year=20x4"} {
				if rr := f.do(httptest.NewRequest("GET", path+q, http.NoBody), RoleOrganization); rr.Code != http.StatusBadRequest {
					t.Errorf("%s: status = %d, want 400", q, rr.Code)
				}
			}
		})
	}
}

func TestAnalytics_EmptyResultIsNotFound(t *testing.T) {
	f := newFixture(t)
	f.analytics.err = domain.ErrEmptyResultSet
	rr := f.do(httptest.NewRequest("GET",
		"/analytics/product-price-deviations?organization_id=o&product_name=W&year=2024", http.NoBody), RoleOrganization)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestMonthlyExpenditure_OptionalYear(t *testing.T) {
	f := newFixture(t)

	rr := f.do(httptest.NewRequest("GET", "/analytics/monthly-expenditure?organization_id=o", http.NoBody), RoleOrganization)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if f.analytics.year != nil {
		t.Errorf("year = %v, want nil", *f.analytics.year)
	}

	rr = f.do(httptest.NewRequest("GET", "/analytics/monthly-expenditure?organization_id=o&year=2023", http.NoBody), RoleOrganization)
	if rr.Code != http.StatusOK || f.analytics.year == nil || *f.analytics.year != 2023 {
		t.Errorf("status = %d, year = %v", rr.Code, f.analytics.year)
	}
}

func TestAnalytics_XLSXExport(t *testing.T) {
	for _, target := range []string{
		"/analytics/monthly-expenditure?organization_id=o&format=xlsx",
		"/analytics/supplier-expenditures?organization_id=o&year=2024&format=xlsx",
	} {
		f := newFixture(t)
		rr := f.do(httptest.NewRequest("GET", target, http.NoBody), RoleOrganization)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", target, rr.Code)
		}
		if ct := rr.Header().Get("Content-Type"); ct != xlsx.ContentType {
			t.Errorf("%s: content type = %q", target, ct)
		}
		if !bytes.HasPrefix(rr.Body.Bytes(), []byte("PK")) {
			t.Errorf("%s: body is not a zip container", target)
		}
	}

	f := newFixture(t)
	rr := f.do(httptest.NewRequest("GET", "/analytics/monthly-expenditure?organization_id=o&format=pdf", http.NoBody),
		RoleOrganization)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("unknown format: status = %d, want 400", rr.Code)
	}
}

func TestSafeDomainMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{domain.ErrNotFound, "not found"},
		{errors.Join(domain.ErrQueryExecutionFailure, errors.New("dial tcp 10.0.0.1")), "query execution failure"},
		{errors.New("boom"), "internal error"},
	}
	for _, tt := range tests {
		if got := safeDomainMessage(tt.err); got != tt.want {
			t.Errorf("safeDomainMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}

	wrapped := errors.Join(domain.ErrInvalidRequest, errors.New("year must be a valid 4-digit number"))
	if got := safeDomainMessage(wrapped); !strings.Contains(got, "4-digit") {
		t.Errorf("validation detail dropped: %q", got)
	}
}
