package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code       Code
		status     int
		publicMsg  string
		retryable  bool
		detailsOK  bool
		userFacing bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true, userFacing: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required", userFacing: true},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied", userFacing: true},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found", userFacing: true},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected", userFacing: true},
		{code: CodeUpstream, status: http.StatusBadGateway, publicMsg: "upstream request failed", detailsOK: true, userFacing: true},
		{code: CodeContract, status: http.StatusBadGateway, publicMsg: "unexpected response from gateway", detailsOK: true, userFacing: true},
		{code: CodeRateLimit, status: http.StatusTooManyRequests, publicMsg: "rate limit exceeded", userFacing: true},
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
		if meta.UserFacing != tt.userFacing {
			t.Fatalf("code %s expected user facing %v got %v", tt.code, tt.userFacing, meta.UserFacing)
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

	base.WithDetails(map[string]any{"field": "foo"})
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
	err := fmt.Errorf("outer: %w", New(CodeForbidden, "no entry"))
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
	if !IsCode(err, CodeForbidden) || IsCode(err, CodeValidation) {
		t.Fatalf("IsCode mismatch")
	}
}

func TestUserMessagePrefersServerText(t *testing.T) {
	if got := UserMessage(New(CodeUpstream, "Out of stock"), "Failed to add item to cart"); got != "Out of stock" {
		t.Fatalf("expected server message, got %q", got)
	}
	if got := UserMessage(New(CodeUpstream, "  "), "fallback"); got != "fallback" {
		t.Fatalf("expected fallback for blank message, got %q", got)
	}
	if got := UserMessage(Wrap(CodeDependency, stdErrors.New("dial tcp"), "execute request"), "fallback"); got != "fallback" {
		t.Fatalf("transport errors should use fallback, got %q", got)
	}
	if got := UserMessage(stdErrors.New("plain"), "fallback"); got != "fallback" {
		t.Fatalf("untyped errors should use fallback, got %q", got)
	}
}

type statusErr struct{ status int }

func (s statusErr) Error() string   { return fmt.Sprintf("status %d", s.status) }
func (s statusErr) StatusCode() int { return s.status }

func TestDumpCapturesChainAndStatus(t *testing.T) {
	err := Wrap(CodeUpstream, statusErr{status: 409}, "Out of stock")
	dump := Dump(err)
	if dump.Code != CodeUpstream {
		t.Fatalf("unexpected code %s", dump.Code)
	}
	if dump.UpstreamStatus != 409 {
		t.Fatalf("expected upstream status 409, got %d", dump.UpstreamStatus)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected chain of 2, got %v", dump.Chain)
	}
	if Dump(nil).TopMessage != "" {
		t.Fatalf("expected empty dump for nil")
	}
}
