package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type wireQuery struct {
	Query *wireRoot `json:"query"`
	Size  int       `json:"size,omitempty"`
}

type wireRoot struct {
	Bool     *wireBool `json:"bool,omitempty"`
	MatchAll *struct{} `json:"match_all,omitempty"`
}

type wireBool struct {
	Must   []json.RawMessage `json:"must"`
	Filter []json.RawMessage `json:"filter"`
}

type wireNested struct {
	Path  string                       `json:"path"`
	Query map[string]map[string]string `json:"query"`
}

// MarshalJSON writes the query in its bool-query document form:
// {"query":{"bool":{"must":[...],"filter":[...]}},"size":N}.
func (q Query) MarshalJSON() ([]byte, error) {
	b := &wireBool{Must: []json.RawMessage{}, Filter: []json.RawMessage{}}
	for _, c := range q.must {
		raw, err := c.MarshalJSON()
		if err != nil {
			return nil, err
		}
		b.Must = append(b.Must, raw)
	}
	for _, c := range q.filter {
		raw, err := c.MarshalJSON()
		if err != nil {
			return nil, err
		}
		b.Filter = append(b.Filter, raw)
	}
	return json.Marshal(wireQuery{Query: &wireRoot{Bool: b}, Size: q.size})
}

// UnmarshalJSON parses a previously compiled query and revalidates every clause.
func (q *Query) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var w wireQuery
	if err := dec.Decode(&w); err != nil {
		return fmt.Errorf("decode query: %w", err)
	}
	if w.Query == nil {
		return fmt.Errorf("query is required")
	}

	var must, filter []Clause
	if w.Query.Bool != nil {
		for _, raw := range w.Query.Bool.Must {
			c, err := parseClause(raw)
			if err != nil {
				return fmt.Errorf("must: %w", err)
			}
			must = append(must, c)
		}
		for _, raw := range w.Query.Bool.Filter {
			c, err := parseClause(raw)
			if err != nil {
				return fmt.Errorf("filter: %w", err)
			}
			filter = append(filter, c)
		}
	}

	parsed, err := New(must, filter, w.Size)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

// MarshalJSON writes a single clause, e.g. {"term":{"currency":"USD"}}.
func (c Clause) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case KindTerm, KindMatch:
		return json.Marshal(map[string]map[string]string{string(c.kind): {c.field: c.value}})
	case KindNested:
		return json.Marshal(map[string]wireNested{"nested": {
			Path:  c.path,
			Query: map[string]map[string]string{"match": {c.field: c.value}},
		}})
	case KindRange:
		bounds := make(map[string]any, 2)
		if v := c.rng.GTE(); v != nil {
			bounds["gte"] = boundJSON(c.FieldType(), *v)
		}
		if v := c.rng.LTE(); v != nil {
			bounds["lte"] = boundJSON(c.FieldType(), *v)
		}
		return json.Marshal(map[string]map[string]map[string]any{"range": {c.field: bounds}})
	default:
		return nil, fmt.Errorf("unknown clause kind %q", c.kind)
	}
}

func boundJSON(ft FieldType, v string) any {
	if ft == FieldNumeric {
		return json.Number(v)
	}
	return v
}

func parseClause(raw json.RawMessage) (Clause, error) {
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(raw, &outer); err != nil {
		return Clause{}, fmt.Errorf("decode clause: %w", err)
	}
	if len(outer) != 1 {
		return Clause{}, fmt.Errorf("clause must have exactly one key")
	}

	for k, body := range outer {
		switch Kind(k) {
		case KindTerm:
			field, value, err := singleField(body)
			if err != nil {
				return Clause{}, fmt.Errorf("term: %w", err)
			}
			return Term(field, value)
		case KindMatch:
			field, value, err := singleField(body)
			if err != nil {
				return Clause{}, fmt.Errorf("match: %w", err)
			}
			return Match(field, value)
		case KindNested:
			return parseNested(body)
		case KindRange:
			return parseRange(body)
		default:
			return Clause{}, fmt.Errorf("unsupported clause %q", k)
		}
	}
	return Clause{}, fmt.Errorf("empty clause")
}

func singleField(body json.RawMessage) (string, string, error) {
	var m map[string]string
	if err := json.Unmarshal(body, &m); err != nil {
		return "", "", fmt.Errorf("expected {field: string}: %w", err)
	}
	if len(m) != 1 {
		return "", "", fmt.Errorf("expected exactly one field")
	}
	for f, v := range m {
		return f, v, nil
	}
	return "", "", nil
}

func parseNested(body json.RawMessage) (Clause, error) {
	var n struct {
		Path  string          `json:"path"`
		Query json.RawMessage `json:"query"`
	}
	if err := json.Unmarshal(body, &n); err != nil {
		return Clause{}, fmt.Errorf("nested: %w", err)
	}
	var inner map[string]json.RawMessage
	if err := json.Unmarshal(n.Query, &inner); err != nil {
		return Clause{}, fmt.Errorf("nested query: %w", err)
	}
	matchBody, ok := inner["match"]
	if !ok || len(inner) != 1 {
		return Clause{}, fmt.Errorf("nested query must be a single match")
	}
	field, value, err := singleField(matchBody)
	if err != nil {
		return Clause{}, fmt.Errorf("nested match: %w", err)
	}
	return NestedMatch(n.Path, field, value)
}

func parseRange(body json.RawMessage) (Clause, error) {
	var m map[string]map[string]json.RawMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return Clause{}, fmt.Errorf("range: %w", err)
	}
	if len(m) != 1 {
		return Clause{}, fmt.Errorf("range: expected exactly one field")
	}
	for field, bounds := range m {
		var gte, lte *string
		for op, rawBound := range bounds {
			v, err := boundText(rawBound)
			if err != nil {
				return Clause{}, fmt.Errorf("range %s.%s: %w", field, op, err)
			}
			switch op {
			case "gte":
				gte = &v
			case "lte":
				lte = &v
			default:
				return Clause{}, fmt.Errorf("range %s: unsupported operator %q", field, op)
			}
		}
		r, err := NewRangeBounds(gte, lte)
		if err != nil {
			return Clause{}, fmt.Errorf("range %s: %w", field, err)
		}
		return NewRange(field, r)
	}
	return Clause{}, fmt.Errorf("range: empty")
}

func boundText(raw json.RawMessage) (string, error) {
	s := strings.TrimSpace(string(raw))
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return "", err
		}
		return v, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("bound must be a string or number")
	}
	return n.String(), nil
}
