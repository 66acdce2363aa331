// Package guard decides whether a caller may reach an authenticated or administrative
// surface. Decisions are recomputed on every call.
package guard

import (
	"context"

	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/gateway"
	"github.com/angelmondragon/storefront/pkg/logger"
)

const (
	LoginPath = "/login"
	HomePath  = "/"
)

type State int

const (
	Pending State = iota
	Granted
	Denied
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Granted:
		return "granted"
	case Denied:
		return "denied"
	}
	return "unknown"
}

// Decision is the outcome of a guard check. Redirect and Replace are set only when denied.
type Decision struct {
	State    State
	Redirect string
	Replace  bool
	// Code distinguishes a missing session (UNAUTHORIZED) from a missing privilege (FORBIDDEN).
	Code pkgerrors.Code
}

// Err converts a non-granted decision into a coded error.
func (d Decision) Err() error {
	switch d.State {
	case Granted:
		return nil
	case Pending:
		return pkgerrors.New(pkgerrors.CodeDependency, "session is still loading")
	}
	if d.Code == pkgerrors.CodeUnauthorized {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "admin access required")
}

type sessionView interface {
	Loading() bool
	Authenticated() bool
	User() *gateway.User
	PersistedToken(ctx context.Context) (string, error)
}

type adminVerifier interface {
	VerifyAdmin(ctx context.Context, token string) (bool, error)
}

type Guard struct {
	session  sessionView
	verifier adminVerifier
	logg     *logger.Logger
}

func New(session sessionView, verifier adminVerifier, logg *logger.Logger) *Guard {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Guard{session: session, verifier: verifier, logg: logg}
}

// RequireAuthenticated grants any signed-in caller.
func (g *Guard) RequireAuthenticated(_ context.Context) Decision {
	if g.session.Loading() {
		return Decision{State: Pending}
	}
	if g.session.Authenticated() {
		return Decision{State: Granted}
	}
	return Decision{State: Denied, Redirect: LoginPath, Replace: true, Code: pkgerrors.CodeUnauthorized}
}

// RequireAdmin grants only when the cached role is Admin and the gateway confirms it
// for the persisted token.
func (g *Guard) RequireAdmin(ctx context.Context) Decision {
	if g.session.Loading() {
		return Decision{State: Pending}
	}
	if !g.session.Authenticated() {
		return deny(pkgerrors.CodeUnauthorized)
	}

	user := g.session.User()
	token, err := g.session.PersistedToken(ctx)
	if err != nil {
		g.logg.Error(ctx, "guard.admin.read_token_failed", err)
		return deny(pkgerrors.CodeForbidden)
	}
	if token == "" || user == nil || user.Role != enums.RoleAdmin {
		return deny(pkgerrors.CodeForbidden)
	}

	ok, err := g.verifier.VerifyAdmin(ctx, token)
	if err != nil {
		g.logg.Warn(g.logg.WithField(g.logg.WithUserID(ctx, user.ID), "error", err.Error()), "guard.admin.verify_failed")
		return deny(pkgerrors.CodeForbidden)
	}
	if !ok {
		return deny(pkgerrors.CodeForbidden)
	}
	return Decision{State: Granted}
}

func deny(code pkgerrors.Code) Decision {
	return Decision{State: Denied, Redirect: HomePath, Replace: true, Code: code}
}
