package invoicedex

import (
	"io"
	"time"

	"github.com/kailas-cloud/invoicedex/internal/domain/deadletter"
	"github.com/kailas-cloud/invoicedex/internal/domain/search/document"
	searchuc "github.com/kailas-cloud/invoicedex/internal/usecase/search"
)

// ImportRequest is a CSV file with one invoice per row.
type ImportRequest struct {
	SupplierID     string
	OrganizationID string
	Filename       string
	Body           io.Reader
	// UseSupplierMapping applies the supplier's mapping spec to each row
	// instead of the built-in column layout.
	UseSupplierMapping bool
}

// ImportResult reports a CSV import.
type ImportResult struct {
	Count        int
	Indexed      int
	DeadLettered []string
}

// ReindexResult reports a full re-projection of stored invoices.
type ReindexResult struct {
	Total        int
	Indexed      int
	DeadLettered []string
	Skipped      []string
}

// SearchParams are the structured search parameters. Empty fields add no clause.
type SearchParams struct {
	SupplierName    string
	StartDate       string // YYYY-MM-DD
	EndDate         string // YYYY-MM-DD
	InvoiceNumber   string
	Currency        string
	TotalAmountMin  string
	TotalAmountMax  string
	ItemDescription string
	Size            int
}

// Hit is one matched invoice.
type Hit struct {
	ID            string
	InvoiceNumber string
	InvoiceDate   string
	Currency      string
	Issuer        string
	Recipient     string
	Seller        string
	Buyer         string
	TotalAmount   float64
	Archived      bool
}

// SearchPage is the result of executing a compiled query.
type SearchPage struct {
	Total int
	Hits  []Hit
}

// DeadLetter is an invoice whose index write failed permanently.
type DeadLetter struct {
	InvoiceID string
	Issuer    string
	Recipient string
	Attempts  int
	LastError string
	FailedAt  time.Time
}

func (p SearchParams) toInternal() searchuc.Params {
	return searchuc.Params{
		SupplierName:    p.SupplierName,
		StartDate:       p.StartDate,
		EndDate:         p.EndDate,
		InvoiceNumber:   p.InvoiceNumber,
		Currency:        p.Currency,
		TotalAmountMin:  p.TotalAmountMin,
		TotalAmountMax:  p.TotalAmountMax,
		ItemDescription: p.ItemDescription,
		Size:            p.Size,
	}
}

func hitFromDomain(h document.Hit) Hit {
	d := &h.Document
	return Hit{
		ID:            h.ID,
		InvoiceNumber: d.InvoiceNumber,
		InvoiceDate:   d.InvoiceDate,
		Currency:      d.Currency,
		Issuer:        d.Issuer,
		Recipient:     d.Recipient,
		Seller:        d.Seller.CompanyName,
		Buyer:         d.Buyer.CompanyName,
		TotalAmount:   d.Summary.TotalAmount,
		Archived:      d.IsArchived(),
	}
}

func deadLetterFromDomain(e deadletter.Entry) DeadLetter {
	return DeadLetter{
		InvoiceID: e.InvoiceID,
		Issuer:    e.Issuer,
		Recipient: e.Recipient,
		Attempts:  e.Attempts,
		LastError: e.LastError,
		FailedAt:  e.FailedAt,
	}
}
