package deadletter

import "time"

// Entry records an invoice whose index write failed permanently.
type Entry struct {
	InvoiceID string    `json:"invoice_id"`
	Issuer    string    `json:"issuer"`
	Recipient string    `json:"recipient"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error"`
	FailedAt  time.Time `json:"failed_at"`
}
