package chi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kailas-cloud/invoicedex/internal/domain"
	"github.com/kailas-cloud/invoicedex/internal/domain/search/query"
)

// SearchInvoices handles GET /search/invoices.
func (s *Server) SearchInvoices(w http.ResponseWriter, r *http.Request) {
	p, err := searchParamsFromQuery(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	hits, err := s.search.Search(r.Context(), p)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hitsToWire(hits))
}

// ListOrganizationProducts handles GET /search/products.
func (s *Server) ListOrganizationProducts(w http.ResponseWriter, r *http.Request) {
	p, err := searchParamsFromQuery(r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	products, err := s.search.OrganizationProducts(r.Context(), p)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// BuildQuery handles POST /search/build-query. The compiled query is
// returned without being executed.
func (s *Server) BuildQuery(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	var body searchParamsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.handleDomainError(w, r, badBody(err))
		return
	}

	q, err := s.search.Preview(body.params())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	data, err := json.Marshal(q)
	if err != nil {
		s.handleDomainError(w, r, fmt.Errorf("encode query: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, QueryPreview{Query: data})
}

// executeBody carries a query previously returned by BuildQuery.
type executeBody struct {
	Query json.RawMessage `json:"query"`
}

// ExecuteSearch handles POST /search/execute.
func (s *Server) ExecuteSearch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	var body executeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.handleDomainError(w, r, badBody(err))
		return
	}
	if len(body.Query) == 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "query is required")
		return
	}

	var q query.Query
	if err := json.Unmarshal(body.Query, &q); err != nil {
		// A rejected compiled query is a query failure answered as a client error.
		s.handleDomainError(w, r,
			fmt.Errorf("%w: %w: %w", domain.ErrInvalidRequest, domain.ErrQueryExecutionFailure, err))
		return
	}

	page, err := s.search.ExecuteCompiled(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ExecuteResponse{
		Total:   page.Total,
		Results: resultsToWire(page.Hits),
	})
}
