package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MaxClausesPerGroup is the maximum number of clauses in must or filter.
const MaxClausesPerGroup = 32

// DateLayout is the accepted form of date range bounds.
const DateLayout = "2006-01-02"

// FieldType is how the index stores a queryable field.
type FieldType int

// Field types.
const (
	FieldTag FieldType = iota + 1
	FieldText
	FieldNumeric
	FieldDate
)

// Fields is the registry of queryable index fields.
var Fields = map[string]FieldType{
	"invoice_number":       FieldTag,
	"currency":             FieldTag,
	"issuer":               FieldTag,
	"recipient":            FieldTag,
	"original_invoice_id":  FieldTag,
	"archived":             FieldTag,
	"items.description":    FieldText,
	"seller.company_name":  FieldText,
	"buyer.company_name":   FieldText,
	"invoice_date":         FieldDate,
	"due_date":             FieldDate,
	"summary.total_amount": FieldNumeric,
}

// Kind is the clause type.
type Kind string

// Clause kinds.
const (
	KindTerm   Kind = "term"
	KindMatch  Kind = "match"
	KindNested Kind = "nested"
	KindRange  Kind = "range"
)

// Clause is a single boolean query clause.
type Clause struct {
	kind  Kind
	field string
	value string
	path  string
	rng   *Range
}

// Term creates an exact match on a keyword field.
func Term(field, value string) (Clause, error) {
	if err := checkField(field, FieldTag); err != nil {
		return Clause{}, err
	}
	if value == "" {
		return Clause{}, fmt.Errorf("term value is required for field %q", field)
	}
	return Clause{kind: KindTerm, field: field, value: value}, nil
}

// Match creates a full-text match on a text field.
func Match(field, value string) (Clause, error) {
	if err := checkField(field, FieldText); err != nil {
		return Clause{}, err
	}
	if strings.TrimSpace(value) == "" {
		return Clause{}, fmt.Errorf("match value is required for field %q", field)
	}
	return Clause{kind: KindMatch, field: field, value: value}, nil
}

// NestedMatch creates a match on a text field inside a nested sub-document.
// The field must live under path, e.g. path "items" and field "items.description".
func NestedMatch(path, field, value string) (Clause, error) {
	if path == "" || !strings.HasPrefix(field, path+".") {
		return Clause{}, fmt.Errorf("field %q is not under nested path %q", field, path)
	}
	c, err := Match(field, value)
	if err != nil {
		return Clause{}, err
	}
	c.kind = KindNested
	c.path = path
	return c, nil
}

// NewRange creates a range clause on a numeric or date field.
func NewRange(field string, r Range) (Clause, error) {
	ft, ok := Fields[field]
	if !ok {
		return Clause{}, fmt.Errorf("unknown field %q", field)
	}
	if ft != FieldNumeric && ft != FieldDate {
		return Clause{}, fmt.Errorf("field %q does not support range", field)
	}
	for _, b := range []*string{r.gte, r.lte} {
		if b == nil {
			continue
		}
		if err := checkBound(ft, *b); err != nil {
			return Clause{}, fmt.Errorf("range on %q: %w", field, err)
		}
	}
	return Clause{kind: KindRange, field: field, rng: &r}, nil
}

func checkField(field string, want FieldType) error {
	ft, ok := Fields[field]
	if !ok {
		return fmt.Errorf("unknown field %q", field)
	}
	if ft != want {
		return fmt.Errorf("field %q does not support this clause", field)
	}
	return nil
}

func checkBound(ft FieldType, v string) error {
	if ft == FieldDate {
		if _, err := time.Parse(DateLayout, v); err != nil {
			return fmt.Errorf("bound %q is not a YYYY-MM-DD date", v)
		}
		return nil
	}
	if _, err := strconv.ParseFloat(v, 64); err != nil {
		return fmt.Errorf("bound %q is not a number", v)
	}
	return nil
}

// Kind returns the clause kind.
func (c Clause) Kind() Kind { return c.kind }

// Field returns the target field.
func (c Clause) Field() string { return c.field }

// Value returns the term or match value.
func (c Clause) Value() string { return c.value }

// Path returns the nested path of a nested clause.
func (c Clause) Path() string { return c.path }

// Range returns the range bounds of a range clause.
func (c Clause) Range() *Range { return c.rng }

// FieldType returns how the index stores the clause field.
func (c Clause) FieldType() FieldType { return Fields[c.field] }

// Range is an inclusive range. Bounds are kept as text: YYYY-MM-DD for dates,
// decimal numbers otherwise.
type Range struct {
	gte *string
	lte *string
}

// NewRangeBounds validates and creates a Range. At least one bound is required.
func NewRangeBounds(gte, lte *string) (Range, error) {
	if gte == nil && lte == nil {
		return Range{}, fmt.Errorf("at least one range boundary is required")
	}
	return Range{gte: gte, lte: lte}, nil
}

// GTE returns the lower inclusive bound.
func (r Range) GTE() *string { return r.gte }

// LTE returns the upper inclusive bound.
func (r Range) LTE() *string { return r.lte }

// Query is a compiled, serializable boolean query: must clauses score and
// match, filter clauses only restrict.
type Query struct {
	must   []Clause
	filter []Clause
	size   int
}

// New validates and creates a Query. A zero size means the caller's default.
func New(must, filter []Clause, size int) (Query, error) {
	if len(must) > MaxClausesPerGroup {
		return Query{}, fmt.Errorf("too many must clauses (max %d)", MaxClausesPerGroup)
	}
	if len(filter) > MaxClausesPerGroup {
		return Query{}, fmt.Errorf("too many filter clauses (max %d)", MaxClausesPerGroup)
	}
	if size < 0 {
		return Query{}, fmt.Errorf("size must not be negative")
	}
	return Query{must: must, filter: filter, size: size}, nil
}

// Must returns the must clauses.
func (q Query) Must() []Clause { return q.must }

// Filter returns the filter clauses.
func (q Query) Filter() []Clause { return q.filter }

// Clauses returns must and filter clauses together.
func (q Query) Clauses() []Clause {
	out := make([]Clause, 0, len(q.must)+len(q.filter))
	out = append(out, q.must...)
	return append(out, q.filter...)
}

// Size returns the requested page size.
func (q Query) Size() int { return q.size }

// WithSize returns a copy with the page size replaced.
func (q Query) WithSize(size int) Query {
	q.size = size
	return q
}

// IsEmpty reports whether the query has no clauses.
func (q Query) IsEmpty() bool { return len(q.must) == 0 && len(q.filter) == 0 }
