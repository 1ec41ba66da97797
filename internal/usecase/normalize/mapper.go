package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kailas-cloud/invoicedex/internal/domain"
	"github.com/kailas-cloud/invoicedex/internal/domain/mapping"
	"github.com/kailas-cloud/invoicedex/internal/domain/source"
)

// MissPolicy decides what an unresolvable path yields.
type MissPolicy int

// Miss policies.
const (
	// SoftMiss turns a missing key at any level into the Missing sentinel.
	SoftMiss MissPolicy = iota
	// Strict turns a missing key into an error.
	Strict
)

// xmlTextKey is where the XML converter puts element text next to attributes.
const xmlTextKey = "#text"

var numberCleaner = strings.NewReplacer("$", "", ",", "")

// Resolve walks a dot-path through the tree one segment at a time. Object
// segments are keys, numeric segments index arrays. An empty path resolves
// to nothing.
func Resolve(tree source.Value, path string, policy MissPolicy) (source.Value, error) {
	if path == "" {
		return miss(path, policy)
	}
	cur := tree
	for _, seg := range strings.Split(path, ".") {
		next, ok := cur.Field(seg)
		if !ok {
			if i, err := strconv.Atoi(seg); err == nil {
				next, ok = cur.Index(i)
			}
		}
		if !ok {
			return miss(path, policy)
		}
		cur = next
	}
	return cur, nil
}

func miss(path string, policy MissPolicy) (source.Value, error) {
	if policy == Strict {
		return source.Missing, domain.NewFieldError(path,
			fmt.Errorf("path not found: %w", domain.ErrMalformedSourceDocument))
	}
	return source.Missing, nil
}

// CleanNumber strips currency signs and thousands separators, then trims.
func CleanNumber(s string) string {
	return strings.TrimSpace(numberCleaner.Replace(s))
}

// Text reduces a resolved value to a string leaf. Null and Missing become "".
// An XML element that carries attributes contributes its text; other
// containers are kept as their JSON encoding.
func Text(v source.Value) string {
	switch v.Kind() {
	case source.KindMissing, source.KindNull:
		return ""
	case source.KindObject:
		if t, ok := v.Field(xmlTextKey); ok && t.IsScalar() {
			return t.Text()
		}
		return encode(v)
	case source.KindArray:
		return encode(v)
	default:
		return v.Text()
	}
}

func encode(v source.Value) string {
	data, err := v.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(data)
}

// Coerce converts a resolved value to the declared leaf type. Strings are
// cleaned first; an empty cleaned value becomes 0 for int and 0.0 for float.
// Non-numeric text and fractional ints fail with ErrMalformedSourceDocument.
func Coerce(v source.Value, typ mapping.ValueType) (any, error) {
	switch typ {
	case mapping.TypeInt:
		d, ok, err := toDecimal(v)
		if err != nil || !ok {
			return int64(0), err
		}
		if !d.IsInteger() {
			return int64(0), fmt.Errorf("%w: %s is not an integer", domain.ErrMalformedSourceDocument, d.String())
		}
		return d.IntPart(), nil
	case mapping.TypeFloat:
		d, ok, err := toDecimal(v)
		if err != nil || !ok {
			return 0.0, err
		}
		f, _ := d.Float64()
		return f, nil
	default:
		return Text(v), nil
	}
}

// toDecimal reports ok=false when the value is empty after cleaning.
func toDecimal(v source.Value) (decimal.Decimal, bool, error) {
	var s string
	switch v.Kind() {
	case source.KindMissing, source.KindNull:
		return decimal.Zero, false, nil
	case source.KindBool:
		if v.Text() == "true" {
			return decimal.NewFromInt(1), true, nil
		}
		return decimal.Zero, false, nil
	case source.KindNumber, source.KindString:
		s = CleanNumber(v.Text())
	default:
		s = CleanNumber(Text(v))
	}
	if s == "" {
		return decimal.Zero, false, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("%w: %q is not a number", domain.ErrMalformedSourceDocument, s)
	}
	return d, true, nil
}

// Apply evaluates one mapping rule against a tree. Literal rules bypass
// path resolution.
func Apply(tree source.Value, rule mapping.Rule, policy MissPolicy) (source.Value, error) {
	if lit, ok := rule.Literal(); ok {
		return source.Number(lit), nil
	}
	return Resolve(tree, rule.Path(), policy)
}
