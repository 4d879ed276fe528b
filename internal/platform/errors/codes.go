// Package errors provides structured error handling with i18n support.
package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Numbering errors
	CodeUnknownCategory      Code = "NUMBERING_UNKNOWN_CATEGORY"
	CodeInvalidYear          Code = "NUMBERING_INVALID_YEAR"
	CodeMalformedIdentifier  Code = "NUMBERING_MALFORMED_IDENTIFIER"
	CodeTransactionConflict  Code = "NUMBERING_TRANSACTION_CONFLICT"
	CodeSequenceExhausted    Code = "NUMBERING_SEQUENCE_EXHAUSTED"
	CodeDuplicateIdentifier  Code = "NUMBERING_DUPLICATE_IDENTIFIER"
	CodeDocumentTitleEmpty   Code = "DOCUMENT_TITLE_EMPTY"
	CodeDocumentInvalidQuery Code = "DOCUMENT_INVALID_QUERY"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"

	// Request errors
	CodeInvalidRequest Code = "INVALID_REQUEST"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeUnknownCategory,
		CodeInvalidYear,
		CodeMalformedIdentifier,
		CodeDocumentTitleEmpty,
		CodeDocumentInvalidQuery,
		CodeInvalidRequest:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeSequenceExhausted:
		return codes.FailedPrecondition

	// Aborted - concurrency conflict the caller may retry
	case CodeTransactionConflict:
		return codes.Aborted

	// NotFound - resource doesn't exist
	case CodeNotFound:
		return codes.NotFound

	// AlreadyExists - unique resource constraint
	case CodeDuplicateIdentifier:
		return codes.AlreadyExists

	default:
		return codes.Internal
	}
}

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c.GRPCCode() {
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.FailedPrecondition:
		return http.StatusConflict
	case codes.Aborted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
