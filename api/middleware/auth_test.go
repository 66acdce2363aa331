package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/storefront/internal/guard"
	"github.com/angelmondragon/storefront/internal/session"
	"github.com/angelmondragon/storefront/internal/session/sessiontest"
	"github.com/angelmondragon/storefront/pkg/gateway"
	"github.com/angelmondragon/storefront/pkg/storage"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func serve(h http.Handler, accept string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticatedWhileLoadingAsksToRetry(t *testing.T) {
	client, err := gateway.NewClient("http://127.0.0.1:1")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	sess, err := session.NewStore(session.StoreParams{Gateway: client, Storage: storage.NewMemory()})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	g := guard.New(sess, client, nil)

	rec := serve(Authenticated(g, sess, nil)(okHandler()), "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while loading, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestAuthenticatedDeniesSignedOutCaller(t *testing.T) {
	h := sessiontest.New(t)
	g := guard.New(h.Session, h.Client, nil)
	mw := Authenticated(g, h.Session, nil)

	if rec := serve(mw(okHandler()), "application/json"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for api callers, got %d", rec.Code)
	}

	rec := serve(mw(okHandler()), "text/html,application/xhtml+xml")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect for browsers, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != guard.LoginPath {
		t.Fatalf("expected redirect to login, got %q", loc)
	}
}

func TestRecovererWritesInternalEnvelope(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := serve(handler, "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestRequestIDEchoesOrMints(t *testing.T) {
	handler := RequestID(nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("expected caller id echoed, got %q", got)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if got := rec.Header().Get(requestIDHeader); len(got) != 36 {
		t.Fatalf("expected minted uuid, got %q", got)
	}
}
