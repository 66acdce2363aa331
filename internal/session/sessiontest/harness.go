// Package sessiontest wires a Store to an in-memory gateway for tests.
package sessiontest

import (
	"context"
	"testing"

	"github.com/angelmondragon/storefront/internal/session"
	"github.com/angelmondragon/storefront/pkg/gateway"
	"github.com/angelmondragon/storefront/pkg/gateway/gatewaytest"
	"github.com/angelmondragon/storefront/pkg/storage"
)

// Harness holds the pieces of a wired session.
type Harness struct {
	Fake    *gatewaytest.Server
	Client  *gateway.Client
	Storage *storage.Memory
	Session *session.Store
}

// New returns an initialized, signed-out harness.
func New(t testing.TB, opts ...gateway.Option) *Harness {
	t.Helper()
	fake := gatewaytest.New(t)
	client, err := gateway.NewClient(fake.URL, opts...)
	if err != nil {
		t.Fatalf("new gateway client: %v", err)
	}
	store := storage.NewMemory()
	sess, err := session.NewStore(session.StoreParams{Gateway: client, Storage: store})
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	client.SetTokenSource(sess)
	client.OnUnauthorized(sess.HandleUnauthorized)
	if err := sess.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize session: %v", err)
	}
	return &Harness{Fake: fake, Client: client, Storage: store, Session: sess}
}

// SignIn logs in through the gateway and fails the test on error.
func (h *Harness) SignIn(t testing.TB, email, password string) *gateway.User {
	t.Helper()
	user, err := h.Session.Login(context.Background(), gateway.Credentials{Email: email, Password: password})
	if err != nil {
		t.Fatalf("login %s: %v", email, err)
	}
	return user
}
