package invoicedex

import "github.com/kailas-cloud/invoicedex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound                = domain.ErrNotFound
	ErrAlreadyExists           = domain.ErrAlreadyExists
	ErrForbidden               = domain.ErrForbidden
	ErrInvalidRequest          = domain.ErrInvalidRequest
	ErrMappingSpecNotFound     = domain.ErrMappingSpecNotFound
	ErrInvalidMappingSpec      = domain.ErrInvalidMappingSpec
	ErrMalformedSourceDocument = domain.ErrMalformedSourceDocument
	ErrUnsupportedFileFormat   = domain.ErrUnsupportedFileFormat
	ErrQueryExecutionFailure   = domain.ErrQueryExecutionFailure
	ErrEmptyResultSet          = domain.ErrEmptyResultSet
)
