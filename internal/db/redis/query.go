package redis

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/kailas-cloud/invoicedex/internal/db"
	"github.com/kailas-cloud/invoicedex/internal/domain/search/query"
)

// compileQuery translates a boolean query into an FT.SEARCH query string.
// Must and filter clauses are intersected; an empty query matches everything.
func compileQuery(q query.Query) (string, error) {
	clauses := q.Clauses()
	if len(clauses) == 0 {
		return "*", nil
	}

	parts := make([]string, 0, len(clauses))
	for _, c := range clauses {
		part, err := compileClause(c)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " "), nil
}

func compileClause(c query.Clause) (string, error) {
	alias := db.FieldAlias(c.Field())

	switch c.Kind() {
	case query.KindTerm:
		return buildTagFilter(alias, c.Value()), nil
	case query.KindMatch, query.KindNested:
		return buildTextMatch(alias, c.Value())
	case query.KindRange:
		if c.Range() == nil {
			return "", fmt.Errorf("%w: range clause on %s without bounds", db.ErrInvalidQuery, c.Field())
		}
		if c.FieldType() == query.FieldDate {
			return buildDateRange(alias+db.DateSuffix, *c.Range())
		}
		return buildNumericRange(alias, *c.Range())
	default:
		return "", fmt.Errorf("%w: unsupported clause %q", db.ErrInvalidQuery, c.Kind())
	}
}

func buildTagFilter(key, value string) string {
	return fmt.Sprintf("@%s:{%s}", key, db.EscapeTag(value))
}

// buildTextMatch matches any of the value's terms, like a default match query.
func buildTextMatch(key, value string) (string, error) {
	terms := strings.FieldsFunc(value, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(terms) == 0 {
		return "", fmt.Errorf("%w: match on %s has no searchable terms", db.ErrInvalidQuery, key)
	}
	for i, t := range terms {
		terms[i] = escapeQuery(t)
	}
	return fmt.Sprintf("@%s:(%s)", key, strings.Join(terms, "|")), nil
}

func buildNumericRange(key string, r query.Range) (string, error) {
	minBound, maxBound := "-inf", "+inf"

	if v := r.GTE(); v != nil {
		f, err := strconv.ParseFloat(*v, 64)
		if err != nil {
			return "", fmt.Errorf("%w: %s lower bound %q", db.ErrInvalidQuery, key, *v)
		}
		minBound = strconv.FormatFloat(f, 'f', -1, 64)
	}
	if v := r.LTE(); v != nil {
		f, err := strconv.ParseFloat(*v, 64)
		if err != nil {
			return "", fmt.Errorf("%w: %s upper bound %q", db.ErrInvalidQuery, key, *v)
		}
		maxBound = strconv.FormatFloat(f, 'f', -1, 64)
	}

	return fmt.Sprintf("@%s:[%s %s]", key, minBound, maxBound), nil
}

func buildDateRange(key string, r query.Range) (string, error) {
	minBound, maxBound := "-inf", "+inf"

	if v := r.GTE(); v != nil {
		t, err := time.Parse(query.DateLayout, *v)
		if err != nil {
			return "", fmt.Errorf("%w: %s lower bound %q", db.ErrInvalidQuery, key, *v)
		}
		minBound = strconv.FormatInt(t.Unix(), 10)
	}
	if v := r.LTE(); v != nil {
		t, err := time.Parse(query.DateLayout, *v)
		if err != nil {
			return "", fmt.Errorf("%w: %s upper bound %q", db.ErrInvalidQuery, key, *v)
		}
		maxBound = strconv.FormatInt(t.Unix(), 10)
	}

	return fmt.Sprintf("@%s:[%s %s]", key, minBound, maxBound), nil
}
