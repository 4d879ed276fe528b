package i18n

// Error codes must match the codes defined in internal/platform/errors/codes.go.
// These are duplicated as strings to avoid an import cycle.
const (
	CodeUnknown              = "UNKNOWN"
	CodeUnknownCategory      = "NUMBERING_UNKNOWN_CATEGORY"
	CodeInvalidYear          = "NUMBERING_INVALID_YEAR"
	CodeMalformedIdentifier  = "NUMBERING_MALFORMED_IDENTIFIER"
	CodeTransactionConflict  = "NUMBERING_TRANSACTION_CONFLICT"
	CodeSequenceExhausted    = "NUMBERING_SEQUENCE_EXHAUSTED"
	CodeDuplicateIdentifier  = "NUMBERING_DUPLICATE_IDENTIFIER"
	CodeDocumentTitleEmpty   = "DOCUMENT_TITLE_EMPTY"
	CodeDocumentInvalidQuery = "DOCUMENT_INVALID_QUERY"
	CodeNotFound             = "NOT_FOUND"
	CodeInvalidRequest       = "INVALID_REQUEST"
)

var enUSMessages = map[Code]string{
	CodeUnknown:              "An unexpected error occurred.",
	CodeUnknownCategory:      `Unknown document category "{{.Category}}". Use job, request, or certificate.`,
	CodeInvalidYear:          "Year {{.Year}} is outside the supported range 1000-9999.",
	CodeMalformedIdentifier:  "Identifier {{.Value}} is malformed: {{.Reason}}.",
	CodeTransactionConflict:  "The numbering store is busy. Please try again.",
	CodeSequenceExhausted:    "No more {{.Category}} numbers are available for {{.Year}}.",
	CodeDuplicateIdentifier:  "The allocated identifier is already used by another document.",
	CodeDocumentTitleEmpty:   "A title is required.",
	CodeDocumentInvalidQuery: "The document query is invalid: {{.Reason}}.",
	CodeNotFound:             "The requested record was not found.",
	CodeInvalidRequest:       "The request is invalid: {{.Reason}}.",
}
