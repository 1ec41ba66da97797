package mapping

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/kailas-cloud/invoicedex/internal/domain"
)

// ItemsKey is the mapping key of the line-item descriptor.
const ItemsKey = "items.list"

// ValueType is the declared coercion type of a canonical leaf.
type ValueType string

// Coercion types.
const (
	TypeString ValueType = "string"
	TypeInt    ValueType = "int"
	TypeFloat  ValueType = "float"
)

// Leaf describes one canonical field addressable from a mapping spec.
type Leaf struct {
	Key  string
	Type ValueType
}

// Leaves lists every canonical leaf outside the item list, in document order.
var Leaves = []Leaf{
	{"header.invoice_number", TypeString},
	{"header.invoice_date", TypeString},
	{"header.due_date", TypeString},
	{"header.currency", TypeString},
	{"seller.company_name", TypeString},
	{"seller.address.street", TypeString},
	{"seller.address.city", TypeString},
	{"seller.address.state", TypeString},
	{"seller.address.zip_code", TypeString},
	{"seller.address.country", TypeString},
	{"seller.contact.name", TypeString},
	{"seller.contact.phone", TypeString},
	{"seller.contact.email", TypeString},
	{"buyer.company_name", TypeString},
	{"buyer.address.street", TypeString},
	{"buyer.address.city", TypeString},
	{"buyer.address.state", TypeString},
	{"buyer.address.zip_code", TypeString},
	{"buyer.address.country", TypeString},
	{"buyer.contact.name", TypeString},
	{"buyer.contact.phone", TypeString},
	{"buyer.contact.email", TypeString},
	{"summary.subtotal", TypeFloat},
	{"summary.tax_rate", TypeFloat},
	{"summary.tax_amount", TypeFloat},
	{"summary.total_amount", TypeFloat},
	{"summary.discount", TypeFloat},
	{"payment_instructions.bank_name", TypeString},
	{"payment_instructions.account_number", TypeString},
	{"payment_instructions.routing_number", TypeString},
	{"payment_instructions.swift", TypeString},
	{"notes.note", TypeString},
}

// ItemLeaves lists the per-item fields of the line-item descriptor.
var ItemLeaves = []Leaf{
	{"description", TypeString},
	{"quantity", TypeInt},
	{"unit_price", TypeFloat},
	{"total_price", TypeFloat},
}

// headerAliases maps header leaves to the unqualified keys older specs use.
var headerAliases = map[string]string{
	"header.invoice_number": "invoice_number",
	"header.invoice_date":   "invoice_date",
	"header.due_date":       "due_date",
	"header.currency":       "currency",
}

// Rule is a single mapping rule: a source dot-path or a numeric literal.
type Rule struct {
	path    string
	literal string
	isLit   bool
}

// PathRule returns a rule resolving a source dot-path.
func PathRule(path string) Rule { return Rule{path: path} }

// LiteralRule returns a rule yielding a numeric literal as-is.
func LiteralRule(number string) Rule { return Rule{literal: number, isLit: true} }

// Path returns the source dot-path.
func (r Rule) Path() string { return r.path }

// Literal returns the numeric literal and whether the rule is one.
func (r Rule) Literal() (string, bool) { return r.literal, r.isLit }

func (r Rule) toJSON() any {
	if r.isLit {
		return json.Number(r.literal)
	}
	return r.path
}

// ItemsRule is the line-item descriptor: the source array to iterate and the
// per-element rules applied to every element. An empty container addresses
// the document root, which then forms a single item.
type ItemsRule struct {
	Container string
	Fields    map[string]Rule
}

// Rules is a validated mapping from canonical keys to source rules.
type Rules struct {
	fields map[string]Rule
	items  *ItemsRule
}

// NewRules builds rules programmatically.
func NewRules(fields map[string]Rule, items *ItemsRule) Rules {
	if fields == nil {
		fields = map[string]Rule{}
	}
	return Rules{fields: fields, items: items}
}

// ParseRules decodes and eagerly validates a mapping document.
func ParseRules(data []byte) (Rules, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return Rules{}, fmt.Errorf("%w: %w", domain.ErrInvalidMappingSpec, err)
	}
	if raw == nil {
		return Rules{}, fmt.Errorf("%w: mapping must be a JSON object", domain.ErrInvalidMappingSpec)
	}

	rules := Rules{fields: make(map[string]Rule, len(raw))}
	for key, v := range raw {
		if key == ItemsKey {
			items, err := parseItemsRule(v)
			if err != nil {
				return Rules{}, err
			}
			rules.items = &items
			continue
		}
		rule, err := parseRule(key, v)
		if err != nil {
			return Rules{}, err
		}
		rules.fields[key] = rule
	}
	return rules, nil
}

func parseRule(key string, v any) (Rule, error) {
	switch t := v.(type) {
	case string:
		return PathRule(t), nil
	case json.Number:
		return LiteralRule(t.String()), nil
	default:
		return Rule{}, fmt.Errorf(
			"%w: rule %q must be a dot-path string or a number, got %s",
			domain.ErrInvalidMappingSpec, key, jsonKind(v),
		)
	}
}

func parseItemsRule(v any) (ItemsRule, error) {
	arr, ok := v.([]any)
	if !ok || len(arr) != 2 {
		return ItemsRule{}, fmt.Errorf(
			"%w: %s must be a two-element array [container_path, {field: path}]",
			domain.ErrInvalidMappingSpec, ItemsKey,
		)
	}
	container, ok := arr[0].(string)
	if !ok {
		return ItemsRule{}, fmt.Errorf(
			"%w: %s[0] must be a dot-path string, got %s",
			domain.ErrInvalidMappingSpec, ItemsKey, jsonKind(arr[0]),
		)
	}
	perItem, ok := arr[1].(map[string]any)
	if !ok {
		return ItemsRule{}, fmt.Errorf(
			"%w: %s[1] must be an object of item field rules, got %s",
			domain.ErrInvalidMappingSpec, ItemsKey, jsonKind(arr[1]),
		)
	}

	known := make(map[string]bool, len(ItemLeaves))
	for _, l := range ItemLeaves {
		known[l.Key] = true
	}

	items := ItemsRule{Container: container, Fields: make(map[string]Rule, len(perItem))}
	for field, fv := range perItem {
		if !known[field] {
			return ItemsRule{}, fmt.Errorf("%w: unknown item field %q", domain.ErrInvalidMappingSpec, field)
		}
		rule, err := parseRule(ItemsKey+"."+field, fv)
		if err != nil {
			return ItemsRule{}, err
		}
		items.Fields[field] = rule
	}
	return items, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case string:
		return "string"
	case json.Number:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Rule returns the rule for a canonical leaf. Header leaves fall back to their
// unqualified alias.
func (r Rules) Rule(key string) (Rule, bool) {
	if rule, ok := r.fields[key]; ok {
		return rule, true
	}
	if alias, ok := headerAliases[key]; ok {
		rule, ok := r.fields[alias]
		return rule, ok
	}
	return Rule{}, false
}

// Items returns the line-item descriptor.
func (r Rules) Items() (ItemsRule, bool) {
	if r.items == nil {
		return ItemsRule{}, false
	}
	return *r.items, true
}

// IsEmpty reports whether no rule is present.
func (r Rules) IsEmpty() bool { return len(r.fields) == 0 && r.items == nil }

// MarshalJSON writes the rules back in their document form.
func (r Rules) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.fields)+1)
	keys := make([]string, 0, len(r.fields))
	for k := range r.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out[k] = r.fields[k].toJSON()
	}
	if r.items != nil {
		perItem := make(map[string]any, len(r.items.Fields))
		for k, rule := range r.items.Fields {
			perItem[k] = rule.toJSON()
		}
		out[ItemsKey] = []any{r.items.Container, perItem}
	}
	return json.Marshal(out)
}
