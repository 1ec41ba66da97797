package invoice

import "github.com/kailas-cloud/invoicedex/internal/db"

func buildIndex(prefix string) *db.IndexDefinition {
	return db.NewIndex(indexName(prefix)).
		OnJSON().
		Prefix(keyPrefix(prefix)).
		JSONTag("issuer").
		JSONTag("recipient").
		JSONTag("archived").
		JSONNumeric("created_at_ts", true).
		MustBuild()
}

func indexName(prefix string) string { return prefix + "invoices" }

func keyPrefix(prefix string) string { return prefix + "invoice:" }
