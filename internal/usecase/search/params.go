package search

import "github.com/kailas-cloud/invoicedex/internal/domain/search/document"

// Params are the recognized search parameters. Empty fields contribute no clause.
type Params struct {
	Query           string
	OrganizationID  string
	SupplierName    string
	StartDate       string
	EndDate         string
	InvoiceNumber   string
	Currency        string
	Issuer          string
	BuyerName       string
	TotalAmountMin  string
	TotalAmountMax  string
	ItemDescription string
	Size            int
}

// Product is one distinct item description bought by an organization.
type Product struct {
	Description string `json:"description"`
	Currency    string `json:"currency"`
	Years       []int  `json:"years"`
}

// Page is the result of executing a compiled query.
type Page struct {
	Total int
	Hits  []document.Hit
}
