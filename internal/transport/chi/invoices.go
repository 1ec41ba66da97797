package chi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	gochi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/invoicedex/internal/domain"
	invoiceuc "github.com/kailas-cloud/invoicedex/internal/usecase/invoice"
)

// createInvoiceBody is the JSON form of a single invoice upload.
// SourceInvoice may be a JSON object or a string holding JSON or XML.
type createInvoiceBody struct {
	SupplierID     string          `json:"supplier_id"`
	OrganizationID string          `json:"organization_id"`
	SourceInvoice  json.RawMessage `json:"source_invoice"`
}

// CreateInvoice handles POST /invoices.
func (s *Server) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	in, err := s.createInput(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	rec, err := s.invoices.Create(r.Context(), in)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, invoiceToWire(&rec))
}

func (s *Server) createInput(r *http.Request) (invoiceuc.CreateInput, error) {
	if isMultipart(r) {
		if err := parseMultipart(r, s.maxUpload); err != nil {
			return invoiceuc.CreateInput{}, err
		}
		in := invoiceuc.CreateInput{
			SupplierID:     r.FormValue("supplier_id"),
			OrganizationID: r.FormValue("organization_id"),
		}
		data, filename, ok, err := formFile(r, "source_invoice")
		if err != nil {
			return invoiceuc.CreateInput{}, err
		}
		if ok {
			in.Filename = filename
			in.Payload = data
		} else {
			in.Payload = []byte(r.FormValue("source_invoice"))
		}
		return in, nil
	}

	var body createInvoiceBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return invoiceuc.CreateInput{}, badBody(err)
	}
	payload, err := sourcePayload(body.SourceInvoice)
	if err != nil {
		return invoiceuc.CreateInput{}, err
	}
	return invoiceuc.CreateInput{
		SupplierID:     body.SupplierID,
		OrganizationID: body.OrganizationID,
		Payload:        payload,
	}, nil
}

// sourcePayload unwraps a JSON string into its text and passes anything else through.
func sourcePayload(raw json.RawMessage) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] != '"' {
		return trimmed, nil
	}
	var text string
	if err := json.Unmarshal(trimmed, &text); err != nil {
		return nil, fmt.Errorf("%w: source_invoice: %w", domain.ErrInvalidRequest, err)
	}
	return []byte(text), nil
}

// BulkCreateInvoices handles POST /invoices/bulk.
func (s *Server) BulkCreateInvoices(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if !isMultipart(r) {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "bulk upload must be multipart/form-data")
		return
	}
	if err := parseMultipart(r, s.maxUpload); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	mode, err := invoiceuc.ParseBulkMapping(strings.ToLower(r.FormValue("mapping")))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	f, hdr, err := openFormFile(r, "source_invoice")
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	defer f.Close()

	res, err := s.invoices.BulkCreate(r.Context(), invoiceuc.BulkInput{
		SupplierID:     r.FormValue("supplier_id"),
		OrganizationID: r.FormValue("organization_id"),
		Filename:       hdr.Filename,
		Body:           f,
		Mapping:        mode,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if len(res.DeadLettered) > 0 {
		s.requestLogger(r).Warn("bulk upload partially indexed",
			zap.Int("count", res.Count),
			zap.Strings("dead_lettered", res.DeadLettered),
		)
	}

	dead := res.DeadLettered
	if dead == nil {
		dead = []string{}
	}
	writeJSON(w, http.StatusCreated, BulkResponse{
		Success:      fmt.Sprintf("%d invoices uploaded successfully.", res.Count),
		Count:        res.Count,
		Indexed:      res.Indexed,
		DeadLettered: dead,
	})
}

// ListSupplierInvoices handles GET /invoices/supplier/{supplierID}.
func (s *Server) ListSupplierInvoices(w http.ResponseWriter, r *http.Request) {
	recs, err := s.invoices.ListByIssuer(r.Context(), gochi.URLParam(r, "supplierID"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, InvoiceList{Invoices: invoicesToWire(recs)})
}

// ListOrganizationInvoices handles GET /invoices/organization/{organizationID}.
func (s *Server) ListOrganizationInvoices(w http.ResponseWriter, r *http.Request) {
	recs, err := s.invoices.ListByRecipient(r.Context(), gochi.URLParam(r, "organizationID"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invoicesToWire(recs))
}

// ListArchivedInvoices handles GET /invoices/archived/{userID}.
func (s *Server) ListArchivedInvoices(w http.ResponseWriter, r *http.Request) {
	recs, err := s.invoices.ListArchived(r.Context(), gochi.URLParam(r, "userID"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invoicesToWire(recs))
}

// ArchiveInvoice handles PUT /invoices/{invoiceID}/archive/{userID}.
func (s *Server) ArchiveInvoice(w http.ResponseWriter, r *http.Request) {
	rec, err := s.invoices.Archive(r.Context(), gochi.URLParam(r, "invoiceID"), gochi.URLParam(r, "userID"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invoiceToWire(&rec))
}

// RestoreInvoice handles POST /invoices/{invoiceID}/restore/{userID}.
func (s *Server) RestoreInvoice(w http.ResponseWriter, r *http.Request) {
	rec, err := s.invoices.Restore(r.Context(), gochi.URLParam(r, "invoiceID"), gochi.URLParam(r, "userID"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invoiceToWire(&rec))
}

// DeleteInvoice handles DELETE /invoices/{invoiceID}.
func (s *Server) DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	if err := s.invoices.Delete(r.Context(), gochi.URLParam(r, "invoiceID")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: "Invoice deleted successfully."})
}
