package chi

import (
	"encoding/json"
	"time"

	dominv "github.com/kailas-cloud/invoicedex/internal/domain/invoice"
	dommap "github.com/kailas-cloud/invoicedex/internal/domain/mapping"
	"github.com/kailas-cloud/invoicedex/internal/domain/search/document"
)

// Invoice is the wire form of a stored invoice record.
type Invoice struct {
	ID             string          `json:"id"`
	Issuer         string          `json:"issuer"`
	Recipient      string          `json:"recipient"`
	SourceFormat   string          `json:"source_format"`
	InternalFormat json.RawMessage `json:"internal_format"`
	CreatedAt      time.Time       `json:"created_at"`
	Archived       bool            `json:"archived"`
	ArchivedAt     *time.Time      `json:"archived_at,omitempty"`
	ArchivedBy     string          `json:"archived_by,omitempty"`
}

// InvoiceList wraps a supplier's invoices.
type InvoiceList struct {
	Invoices []Invoice `json:"invoices"`
}

// BulkResponse reports a bulk upload.
type BulkResponse struct {
	Success      string   `json:"success"`
	Count        int      `json:"count"`
	Indexed      int      `json:"indexed"`
	DeadLettered []string `json:"dead_lettered"`
}

// SuccessResponse is a plain acknowledgement.
type SuccessResponse struct {
	Success string `json:"success"`
}

// Template is the wire form of a supplier mapping spec.
type Template struct {
	ID              string          `json:"id"`
	Supplier        string          `json:"supplier"`
	TemplateName    string          `json:"template_name"`
	TemplateContent string          `json:"template_content"`
	Mapping         json.RawMessage `json:"mapping"`
	MappedStatus    bool            `json:"mapped_status"`
	MappedBy        string          `json:"mapped_by,omitempty"`
	MappedAt        *time.Time      `json:"mapped_at,omitempty"`
	UploadedAt      time.Time       `json:"uploaded_at"`
}

// UnmappedTemplates lists templates awaiting a mapping.
type UnmappedTemplates struct {
	Templates []Template `json:"unmapped_templates"`
}

// SearchHit is one index match.
type SearchHit struct {
	ID     string            `json:"_id"`
	Source document.Document `json:"_source"`
}

// QueryPreview carries a compiled query.
type QueryPreview struct {
	Query json.RawMessage `json:"query"`
}

// ExecuteResult is a matched document flattened with its id.
type ExecuteResult struct {
	ID string `json:"_id"`
	document.Document
}

// ExecuteResponse is the body of POST /search/execute.
type ExecuteResponse struct {
	Total   int             `json:"total"`
	Results []ExecuteResult `json:"results"`
}

func invoiceToWire(r *dominv.Record) Invoice {
	internal := json.RawMessage(r.InternalFormat())
	if !json.Valid(internal) {
		internal = json.RawMessage("null")
	}
	return Invoice{
		ID:             r.ID(),
		Issuer:         r.Issuer(),
		Recipient:      r.Recipient(),
		SourceFormat:   r.SourceFormat(),
		InternalFormat: internal,
		CreatedAt:      r.CreatedAt(),
		Archived:       r.Archived(),
		ArchivedAt:     r.ArchivedAt(),
		ArchivedBy:     r.ArchivedBy(),
	}
}

func invoicesToWire(recs []dominv.Record) []Invoice {
	out := make([]Invoice, len(recs))
	for i := range recs {
		out[i] = invoiceToWire(&recs[i])
	}
	return out
}

func templateToWire(s *dommap.Spec) Template {
	t := Template{
		ID:              s.ID(),
		Supplier:        s.SupplierID(),
		TemplateName:    s.TemplateName(),
		TemplateContent: s.TemplateContent(),
		Mapping:         json.RawMessage("null"),
		MappedStatus:    s.Mapped(),
		MappedBy:        s.MappedBy(),
		MappedAt:        s.MappedAt(),
		UploadedAt:      s.UploadedAt(),
	}
	if rules, ok := s.Rules(); ok {
		if data, err := json.Marshal(rules); err == nil {
			t.Mapping = data
		}
	}
	return t
}

func hitsToWire(hits []document.Hit) []SearchHit {
	out := make([]SearchHit, len(hits))
	for i, h := range hits {
		out[i] = SearchHit{ID: h.ID, Source: h.Document}
	}
	return out
}

func resultsToWire(hits []document.Hit) []ExecuteResult {
	out := make([]ExecuteResult, len(hits))
	for i, h := range hits {
		out[i] = ExecuteResult{ID: h.ID, Document: h.Document}
	}
	return out
}
