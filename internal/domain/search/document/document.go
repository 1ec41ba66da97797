package document

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/invoicedex/internal/domain/invoice"
)

// TimestampLayout is the date-time form index documents carry for invoice dates.
const TimestampLayout = "2006-01-02T15:04:05"

// Document is the denormalized, search-oriented projection of a canonical invoice.
// Its id is the original invoice id, so re-indexing overwrites.
type Document struct {
	InvoiceNumber       string                      `json:"invoice_number"`
	InvoiceDate         string                      `json:"invoice_date"`
	InvoiceDateTS       int64                       `json:"invoice_date_ts"`
	DueDate             string                      `json:"due_date"`
	DueDateTS           int64                       `json:"due_date_ts"`
	Currency            string                      `json:"currency"`
	Issuer              string                      `json:"issuer"`
	Recipient           string                      `json:"recipient"`
	Seller              invoice.Party               `json:"seller"`
	Buyer               invoice.Party               `json:"buyer"`
	Items               []invoice.Item              `json:"items"`
	Summary             invoice.Summary             `json:"summary"`
	PaymentInstructions invoice.PaymentInstructions `json:"payment_instructions"`
	Notes               invoice.Notes               `json:"notes"`
	OriginalInvoiceID   string                      `json:"original_invoice_id"`
	Archived            string                      `json:"archived"`
}

// Build projects a canonical invoice into an index document. Header dates must
// be canonical YYYY-MM-DD strings.
func Build(c *invoice.Canonical, issuer, recipient, invoiceID string, archived bool) (Document, error) {
	if invoiceID == "" {
		return Document{}, fmt.Errorf("original invoice id is required")
	}
	invoiceDate, err := time.Parse(invoice.DateLayout, c.Header.InvoiceDate)
	if err != nil {
		return Document{}, fmt.Errorf("invoice_date %q: %w", c.Header.InvoiceDate, err)
	}
	dueDate, err := time.Parse(invoice.DateLayout, c.Header.DueDate)
	if err != nil {
		return Document{}, fmt.Errorf("due_date %q: %w", c.Header.DueDate, err)
	}

	items := c.Items
	if items == nil {
		items = []invoice.Item{}
	}

	return Document{
		InvoiceNumber:       c.Header.InvoiceNumber,
		InvoiceDate:         invoiceDate.Format(TimestampLayout),
		InvoiceDateTS:       invoiceDate.Unix(),
		DueDate:             dueDate.Format(TimestampLayout),
		DueDateTS:           dueDate.Unix(),
		Currency:            c.Header.Currency,
		Issuer:              issuer,
		Recipient:           recipient,
		Seller:              c.Seller,
		Buyer:               c.Buyer,
		Items:               items,
		Summary:             c.Summary,
		PaymentInstructions: c.PaymentInstructions,
		Notes:               c.Notes,
		OriginalInvoiceID:   invoiceID,
		Archived:            formatArchived(archived),
	}, nil
}

// ID returns the deterministic document id.
func (d *Document) ID() string { return d.OriginalInvoiceID }

// IsArchived reports the projected archive flag.
func (d *Document) IsArchived() bool { return d.Archived == "true" }

// Date returns the parsed invoice date.
func (d *Document) Date() (time.Time, error) {
	t, err := time.Parse(TimestampLayout, d.InvoiceDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse invoice_date %q: %w", d.InvoiceDate, err)
	}
	return t, nil
}

func formatArchived(archived bool) string {
	if archived {
		return "true"
	}
	return "false"
}

// Hit is a document returned by the index together with its id.
type Hit struct {
	ID       string
	Document Document
}
