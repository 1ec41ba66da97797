// Package invoicedex embeds the invoice normalization and indexing pipeline
// in a Go process, backed by Redis with the search module and optionally
// Postgres for canonical records.
//
//	client, _ := invoicedex.New(ctx, invoicedex.WithRedis("localhost:6379", ""))
//	defer client.Close(ctx)
//
//	f, _ := os.Open("march.csv")
//	res, _ := client.Import(ctx, invoicedex.ImportRequest{
//	    SupplierID:     "sup-1",
//	    OrganizationID: "org-1",
//	    Filename:       "march.csv",
//	    Body:           f,
//	})
//
//	compiled, _ := client.Preview(invoicedex.SearchParams{Currency: "USD"})
//	page, _ := client.Execute(ctx, compiled)
package invoicedex
