package db

import "github.com/kailas-cloud/invoicedex/internal/domain/search/query"

// DateSuffix names the epoch-seconds attribute indexed next to a date field,
// e.g. invoice_date is ranged through invoice_date_ts.
const DateSuffix = "_ts"

// SearchQuery is the input for a structured boolean search.
type SearchQuery struct {
	IndexName    string
	Query        query.Query
	Offset       int
	Limit        int
	ReturnFields []string
	SortBy       string
	SortDesc     bool
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Fields map[string]string
}
