package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/grpc/codes"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("delete document: %w", Wrap(CodeMalformedIdentifier, "bad id", stderrors.New("segments")))

	if !stderrors.Is(err, New(CodeMalformedIdentifier, "")) {
		t.Fatal("expected errors.Is to match by code")
	}
	if stderrors.Is(err, New(CodeNotFound, "")) {
		t.Fatal("expected different code not to match")
	}
	if got := CodeOf(err); got != CodeMalformedIdentifier {
		t.Fatalf("CodeOf = %q, want %q", got, CodeMalformedIdentifier)
	}
	if got := CodeOf(stderrors.New("plain")); got != CodeUnknown {
		t.Fatalf("CodeOf(plain) = %q, want %q", got, CodeUnknown)
	}
}

func TestErrorMessageFallsBackToCause(t *testing.T) {
	err := Wrap(CodeTransactionConflict, "", stderrors.New("database is locked"))
	if err.Error() != "database is locked" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestCodeStatusMappings(t *testing.T) {
	tests := []struct {
		code     Code
		grpcCode codes.Code
		http     int
	}{
		{CodeUnknownCategory, codes.InvalidArgument, http.StatusBadRequest},
		{CodeInvalidYear, codes.InvalidArgument, http.StatusBadRequest},
		{CodeMalformedIdentifier, codes.InvalidArgument, http.StatusBadRequest},
		{CodeTransactionConflict, codes.Aborted, http.StatusServiceUnavailable},
		{CodeSequenceExhausted, codes.FailedPrecondition, http.StatusConflict},
		{CodeDuplicateIdentifier, codes.AlreadyExists, http.StatusConflict},
		{CodeNotFound, codes.NotFound, http.StatusNotFound},
		{CodeUnknown, codes.Internal, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(string(tc.code), func(t *testing.T) {
			if got := tc.code.GRPCCode(); got != tc.grpcCode {
				t.Fatalf("GRPCCode = %v, want %v", got, tc.grpcCode)
			}
			if got := tc.code.HTTPStatus(); got != tc.http {
				t.Fatalf("HTTPStatus = %d, want %d", got, tc.http)
			}
		})
	}
}
