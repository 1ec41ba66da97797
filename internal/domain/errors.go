package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing invoice record.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a duplicate resource (one mapping spec per supplier).
	ErrAlreadyExists = errors.New("already exists")
	// ErrForbidden signals that the acting user is not a party to the invoice.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidRequest signals missing or malformed request parameters.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrMappingSpecNotFound signals that no usable mapping spec is registered for a supplier.
	ErrMappingSpecNotFound = errors.New("mapping spec not found")
	// ErrInvalidMappingSpec signals a mapping spec whose shape cannot be applied.
	ErrInvalidMappingSpec = errors.New("invalid mapping spec")
	// ErrMalformedSourceDocument signals a JSON/XML/CSV payload that failed to parse or coerce.
	ErrMalformedSourceDocument = errors.New("malformed source document")
	// ErrUnsupportedFileFormat signals a bulk upload that is not CSV.
	ErrUnsupportedFileFormat = errors.New("unsupported file format")

	// ErrIndexingFailure signals a failed index write. Only the indexer sees it.
	ErrIndexingFailure = errors.New("indexing failure")
	// ErrQueryExecutionFailure signals an unreachable index or a query it rejected.
	ErrQueryExecutionFailure = errors.New("query execution failure")
	// ErrEmptyResultSet signals that a search or report matched no documents.
	ErrEmptyResultSet = errors.New("no matching documents")
)

// FieldError pins a coercion or resolution failure to a canonical field.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return fmt.Sprintf("field %s: %v", e.Field, e.Err) }

func (e *FieldError) Unwrap() error { return e.Err }

// NewFieldError wraps err for the given canonical field.
func NewFieldError(field string, err error) error {
	return &FieldError{Field: field, Err: err}
}
