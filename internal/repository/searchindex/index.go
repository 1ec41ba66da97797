package searchindex

import (
	"github.com/kailas-cloud/invoicedex/internal/db"
	"github.com/kailas-cloud/invoicedex/internal/domain/search/query"
)

// buildIndex derives the FT schema from the queryable field registry.
// Date fields are indexed through their epoch-seconds companion.
func buildIndex(name, prefix string) *db.IndexDefinition {
	b := db.NewIndex(name).OnJSON().Prefix(prefix)
	for _, field := range indexedFields {
		switch query.Fields[field] {
		case query.FieldTag:
			b.JSONTag(field)
		case query.FieldText:
			b.JSONText(field, "items")
		case query.FieldDate:
			b.JSONNumeric(field+db.DateSuffix, field == "invoice_date")
		case query.FieldNumeric:
			b.JSONNumeric(field, false)
		}
	}
	return b.MustBuild()
}

// indexedFields fixes the schema order so FT.CREATE is deterministic.
var indexedFields = []string{
	"invoice_number",
	"currency",
	"issuer",
	"recipient",
	"original_invoice_id",
	"archived",
	"items.description",
	"seller.company_name",
	"buyer.company_name",
	"invoice_date",
	"due_date",
	"summary.total_amount",
}
