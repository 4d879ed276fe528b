package httpapi

import (
	"errors"
	"log"
	"maps"
	"net/http"
	"strconv"

	apperrors "github.com/mtlab/lims/internal/platform/errors"
	"github.com/mtlab/lims/internal/platform/errors/i18n"
	"github.com/mtlab/lims/internal/platform/requestctx"
	"github.com/mtlab/lims/internal/services/numbering/domain"
	"github.com/mtlab/lims/internal/services/numbering/storage"
)

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// scope carries the request values error messages may interpolate.
type scope map[string]string

func keyScope(category string, year int) scope {
	return scope{"Category": category, "Year": strconv.Itoa(year)}
}

// toAppError classifies domain and storage failures into coded errors. Values
// in s fill message metadata the error itself does not carry.
func toAppError(err error, s scope) *apperrors.Error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}

	var (
		code     apperrors.Code
		metadata = map[string]string{}
	)
	maps.Copy(metadata, s)

	var malformed *domain.MalformedIdentifierError
	var conflict *domain.TransactionConflictError
	switch {
	case errors.As(err, &malformed):
		code = apperrors.CodeMalformedIdentifier
		metadata["Value"] = malformed.Value
		metadata["Reason"] = malformed.Reason
	case errors.As(err, &conflict):
		code = apperrors.CodeTransactionConflict
	case errors.Is(err, domain.ErrUnknownCategory):
		code = apperrors.CodeUnknownCategory
	case errors.Is(err, domain.ErrInvalidYear):
		code = apperrors.CodeInvalidYear
	case errors.Is(err, domain.ErrSequenceExhausted):
		code = apperrors.CodeSequenceExhausted
	case errors.Is(err, storage.ErrNotFound):
		code = apperrors.CodeNotFound
	case errors.Is(err, storage.ErrAlreadyExists):
		code = apperrors.CodeDuplicateIdentifier
	default:
		code = apperrors.CodeUnknown
	}
	return apperrors.WrapWithMetadata(code, err.Error(), metadata, err)
}

// invalidRequest reports a body or path that cannot be decoded.
func invalidRequest(reason string) *apperrors.Error {
	return apperrors.WithMetadata(apperrors.CodeInvalidRequest, reason, map[string]string{
		"Reason": reason,
	})
}

// writeError renders err as a localized JSON error using the request's
// Accept-Language preference.
func writeError(w http.ResponseWriter, r *http.Request, err error, s scope) {
	appErr := toAppError(err, s)
	status := appErr.Code.HTTPStatus()
	if status == http.StatusInternalServerError {
		log.Printf("request failed method=%s path=%s request_id=%s err=%v",
			r.Method, r.URL.Path, requestctx.RequestIDFromContext(r.Context()), err)
	}

	catalog := i18n.GetCatalog(i18n.ResolveLocale(r.Header.Get("Accept-Language")))
	w.Header().Set("Content-Language", catalog.Locale())
	if appErr.Code == apperrors.CodeTransactionConflict {
		w.Header().Set("Retry-After", "1")
	}
	_ = WriteJSON(w, status, errorResponse{
		Code:  string(appErr.Code),
		Error: catalog.Format(string(appErr.Code), appErr.Metadata),
	})
}
