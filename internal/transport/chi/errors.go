package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/invoicedex/internal/domain"
)

// ErrorCode is the machine-readable code carried by every error body.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest         ErrorCode = "bad_request"
	CodeUnauthorized       ErrorCode = "unauthorized"
	CodeForbidden          ErrorCode = "forbidden"
	CodeNotFound           ErrorCode = "not_found"
	CodeEmptyResult        ErrorCode = "no_results"
	CodeMappingNotFound    ErrorCode = "mapping_spec_not_found"
	CodeAlreadyExists      ErrorCode = "already_exists"
	CodeInvalidMappingSpec ErrorCode = "invalid_mapping_spec"
	CodeMalformedSource    ErrorCode = "malformed_source_document"
	CodeUnsupportedFormat  ErrorCode = "unsupported_file_format"
	CodeQueryExecution     ErrorCode = "query_execution_failure"
	CodePayloadTooLarge    ErrorCode = "payload_too_large"
	CodeInternalError      ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		payloadTooLargeHandler,
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrEmptyResultSet, http.StatusNotFound, CodeEmptyResult),
		sentinelHandler(domain.ErrMappingSpecNotFound, http.StatusNotFound, CodeMappingNotFound),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, CodeAlreadyExists),
		sentinelHandler(domain.ErrForbidden, http.StatusForbidden, CodeForbidden),
		sentinelHandler(domain.ErrInvalidMappingSpec, http.StatusBadRequest, CodeInvalidMappingSpec),
		sentinelHandler(domain.ErrMalformedSourceDocument, http.StatusBadRequest, CodeMalformedSource),
		sentinelHandler(domain.ErrUnsupportedFileFormat, http.StatusBadRequest, CodeUnsupportedFormat),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, CodeBadRequest),
		sentinelHandler(domain.ErrQueryExecutionFailure, http.StatusBadGateway, CodeQueryExecution),
	}
}

func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func payloadTooLargeHandler(w http.ResponseWriter, err error, _ string) bool {
	var tooLarge *http.MaxBytesError
	if !errors.As(err, &tooLarge) {
		return false
	}
	writeError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge,
		fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
	return true
}

// clientVisible are the sentinels whose full wrapped message is safe to return.
// Validation errors carry the offending field or row, which callers need.
var clientVisible = []error{
	domain.ErrInvalidRequest,
	domain.ErrInvalidMappingSpec,
	domain.ErrMalformedSourceDocument,
	domain.ErrUnsupportedFileFormat,
	domain.ErrForbidden,
}

// safeDomainMessage returns a message that never leaks storage internals.
func safeDomainMessage(err error) string {
	for _, s := range clientVisible {
		if errors.Is(err, s) {
			return err.Error()
		}
	}
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrEmptyResultSet,
		domain.ErrMappingSpecNotFound,
		domain.ErrAlreadyExists,
		domain.ErrQueryExecutionFailure,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := s.requestLogger(r)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}
