package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "resource already exists"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition not allowed", detailsOK: true},
		{code: CodeIdempotency, status: http.StatusConflict, publicMsg: "idempotency key reused", detailsOK: true},
		{code: CodeRateLimit, status: http.StatusTooManyRequests, publicMsg: "rate limit exceeded"},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestPublicHidesServerSideMessages(t *testing.T) {
	if got := Public(New(CodeNotFound, "conversation not found")); got != "conversation not found" {
		t.Fatalf("unexpected public message %q", got)
	}
	if got := Public(Wrap(CodeDependency, stdErrors.New("dial tcp: refused"), "load conversation")); got != "dependency unavailable" {
		t.Fatalf("dependency message leaked: %q", got)
	}
	if got := Public(stdErrors.New("raw")); got != "internal server error" {
		t.Fatalf("untyped error leaked: %q", got)
	}
}

func TestHasCode(t *testing.T) {
	err := Wrap(CodeStateConflict, stdErrors.New("inner"), "cannot transition")
	if !HasCode(err, CodeStateConflict) {
		t.Fatalf("expected state conflict code")
	}
	if HasCode(err, CodeNotFound) {
		t.Fatalf("unexpected not found code")
	}
	if HasCode(nil, CodeNotFound) {
		t.Fatalf("nil error should not carry a code")
	}
}

func TestDumpCarriesCodeAndChain(t *testing.T) {
	cause := stdErrors.New("boom")
	dump := Dump(Wrap(CodeDependency, cause, "insert message"))
	if dump.Code != CodeDependency {
		t.Fatalf("unexpected code %s", dump.Code)
	}
	if !dump.Retryable {
		t.Fatalf("dependency errors should be retryable")
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected chain of 2, got %d", len(dump.Chain))
	}
}

func TestErrorStringIncludesCause(t *testing.T) {
	if got := New(CodeNotFound, "order not found").Error(); got != "NOT_FOUND: order not found" {
		t.Fatalf("unexpected string %q", got)
	}
	wrapped := Wrap(CodeDependency, stdErrors.New("conn refused"), "load order")
	if got := wrapped.Error(); got != "DEPENDENCY_ERROR: load order: conn refused" {
		t.Fatalf("unexpected string %q", got)
	}
	var nilErr *Error
	if nilErr.Code() != CodeInternal || nilErr.Error() != "" || nilErr.WithDetails("x") != nil {
		t.Fatalf("nil *Error should be inert")
	}
}

func TestNewfFormatsMessage(t *testing.T) {
	err := Newf(CodeStateConflict, "cannot transition from %s to %s", "Delivered", "Cancelled")
	if err.Message() != "cannot transition from Delivered to Cancelled" {
		t.Fatalf("unexpected message %q", err.Message())
	}
}

func TestDumpLiftsPostgresFields(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "orders_order_number_key", TableName: "orders"}
	dump := Dump(Wrap(CodeConflict, fmt.Errorf("insert order: %w", pgErr), "create order"))
	if dump.PGCode != "23505" || dump.PGConstraint != "orders_order_number_key" || dump.PGTable != "orders" {
		t.Fatalf("postgres fields not lifted: %+v", dump)
	}

	pqErr := &pq.Error{Code: "23503", Table: "conversation_messages"}
	dump = Dump(pqErr)
	if dump.PGCode != "23503" || dump.PGTable != "conversation_messages" {
		t.Fatalf("lib/pq fields not lifted: %+v", dump)
	}
	if dump.Code != "" {
		t.Fatalf("untyped error should have no code, got %s", dump.Code)
	}
}
