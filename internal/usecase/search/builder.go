package search

import (
	"fmt"

	"github.com/kailas-cloud/invoicedex/internal/domain"
	"github.com/kailas-cloud/invoicedex/internal/domain/search/query"
)

// Build compiles flat search parameters into a bool query. Text matches go to
// must, exact terms and ranges go to filter. Unset parameters add nothing.
func Build(p Params) (query.Query, error) {
	var b clauseBuilder

	b.nested(&b.must, "items", "items.description", p.Query)
	b.term(&b.filter, "recipient", p.OrganizationID)
	b.nested(&b.must, "seller", "seller.company_name", p.SupplierName)
	b.rangeOf(&b.filter, "invoice_date", p.StartDate, p.EndDate, false)
	b.term(&b.filter, "invoice_number", p.InvoiceNumber)
	b.term(&b.filter, "currency", p.Currency)
	b.term(&b.filter, "issuer", p.Issuer)
	b.nested(&b.must, "buyer", "buyer.company_name", p.BuyerName)
	b.rangeOf(&b.filter, "summary.total_amount", p.TotalAmountMin, p.TotalAmountMax, false)

	return b.query(p.Size)
}

// BuildAdvanced compiles the privileged preview parameters. Every clause is
// conjoined under must. Ranges apply only when both bounds are given.
func BuildAdvanced(p Params) (query.Query, error) {
	var b clauseBuilder

	b.nested(&b.must, "seller", "seller.company_name", p.SupplierName)
	b.rangeOf(&b.must, "invoice_date", p.StartDate, p.EndDate, true)
	b.term(&b.must, "invoice_number", p.InvoiceNumber)
	b.term(&b.must, "currency", p.Currency)
	b.rangeOf(&b.must, "summary.total_amount", p.TotalAmountMin, p.TotalAmountMax, true)
	b.nested(&b.must, "items", "items.description", p.ItemDescription)

	return b.query(p.Size)
}

type clauseBuilder struct {
	must   []query.Clause
	filter []query.Clause
	err    error
}

func (b *clauseBuilder) add(dst *[]query.Clause, c query.Clause, err error) {
	if b.err != nil {
		return
	}
	if err != nil {
		b.err = err
		return
	}
	*dst = append(*dst, c)
}

func (b *clauseBuilder) term(dst *[]query.Clause, field, value string) {
	if value == "" {
		return
	}
	c, err := query.Term(field, value)
	b.add(dst, c, err)
}

func (b *clauseBuilder) nested(dst *[]query.Clause, path, field, value string) {
	if value == "" {
		return
	}
	c, err := query.NestedMatch(path, field, value)
	b.add(dst, c, err)
}

func (b *clauseBuilder) rangeOf(dst *[]query.Clause, field, gte, lte string, both bool) {
	if both && (gte == "" || lte == "") {
		return
	}
	if gte == "" && lte == "" {
		return
	}
	r, err := query.NewRangeBounds(optional(gte), optional(lte))
	if err != nil {
		b.add(dst, query.Clause{}, err)
		return
	}
	c, err := query.NewRange(field, r)
	b.add(dst, c, err)
}

func (b *clauseBuilder) query(size int) (query.Query, error) {
	if b.err != nil {
		return query.Query{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, b.err)
	}
	q, err := query.New(b.must, b.filter, size)
	if err != nil {
		return query.Query{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	return q, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
