package normalize

import (
	"github.com/kailas-cloud/invoicedex/internal/domain/mapping"
)

// Profile tunes how the normalizer treats absent and textual values.
type Profile struct {
	Name string
	// Miss is the path resolution policy.
	Miss MissPolicy
	// CleanText applies number cleaning to string leaves as well.
	CleanText bool
	// MissingText replaces empty or absent string leaves when set.
	MissingText string
	// SourceDateLayout, when set, reparses header dates into YYYY-MM-DD.
	SourceDateLayout string
	// InvalidDate replaces header dates that fail to parse.
	InvalidDate string
}

// MappingProfile is used with supplier mapping specs: soft misses, cleaned
// strings, dates passed through.
var MappingProfile = Profile{
	Name:      "mapping",
	Miss:      SoftMiss,
	CleanText: true,
}

// CSVProfile is used with the fixed-column bulk layout.
var CSVProfile = Profile{
	Name:             "csv",
	Miss:             SoftMiss,
	MissingText:      "N/A",
	SourceDateLayout: "1/2/2006",
	InvalidDate:      "N/A",
}

// csvColumns maps canonical leaves to the fixed bulk CSV column names.
var csvColumns = map[string]string{
	"header.invoice_number":               "InvoiceNumber",
	"header.invoice_date":                 "InvoiceDate",
	"header.due_date":                     "DueDate",
	"header.currency":                     "Currency",
	"seller.company_name":                 "SellerCompanyName",
	"seller.address.street":               "SellerStreet",
	"seller.address.city":                 "SellerCity",
	"seller.address.state":                "SellerState",
	"seller.address.zip_code":             "SellerZipCode",
	"seller.address.country":              "SellerCountry",
	"seller.contact.name":                 "SellerContactName",
	"seller.contact.phone":                "SellerContactPhone",
	"seller.contact.email":                "SellerContactEmail",
	"buyer.company_name":                  "BuyerCompanyName",
	"buyer.address.street":                "BuyerStreet",
	"buyer.address.city":                  "BuyerCity",
	"buyer.address.state":                 "BuyerState",
	"buyer.address.zip_code":              "BuyerZipCode",
	"buyer.address.country":               "BuyerCountry",
	"buyer.contact.name":                  "BuyerContactName",
	"buyer.contact.phone":                 "BuyerContactPhone",
	"buyer.contact.email":                 "BuyerContactEmail",
	"summary.subtotal":                    "InvoiceSubtotal",
	"summary.tax_rate":                    "InvoiceTaxRate",
	"summary.tax_amount":                  "InvoiceTaxAmount",
	"summary.total_amount":                "InvoiceTotalAmount",
	"summary.discount":                    "InvoiceDiscount",
	"payment_instructions.bank_name":      "BankName",
	"payment_instructions.account_number": "AccountNumber",
	"payment_instructions.routing_number": "RoutingNumber",
	"payment_instructions.swift":          "SWIFT",
	"notes.note":                          "InvoiceNote",
}

// DefaultCSVSpec returns the built-in rules for the fixed bulk CSV layout.
// The row itself is the single line item.
func DefaultCSVSpec() mapping.Rules {
	fields := make(map[string]mapping.Rule, len(csvColumns))
	for leaf, column := range csvColumns {
		fields[leaf] = mapping.PathRule(column)
	}
	return mapping.NewRules(fields, &mapping.ItemsRule{
		Container: "",
		Fields: map[string]mapping.Rule{
			"description": mapping.PathRule("ItemDescription"),
			"quantity":    mapping.PathRule("ItemQuantity"),
			"unit_price":  mapping.PathRule("ItemUnitPrice"),
			"total_price": mapping.PathRule("ItemTotalPrice"),
		},
	})
}

// CSVColumns returns the fixed bulk CSV header in canonical order.
func CSVColumns() []string {
	cols := make([]string, 0, len(csvColumns)+4)
	for _, l := range mapping.Leaves {
		if l.Key == "summary.subtotal" {
			cols = append(cols, "ItemDescription", "ItemQuantity", "ItemUnitPrice", "ItemTotalPrice")
		}
		cols = append(cols, csvColumns[l.Key])
	}
	return cols
}
