package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/session"
	"github.com/angelmondragon/storefront/pkg/gateway"
	"github.com/angelmondragon/storefront/pkg/logger"
)

type sessionService interface {
	Login(ctx context.Context, creds gateway.Credentials) (*gateway.User, error)
	Logout(ctx context.Context) error
	Register(ctx context.Context, reg gateway.Registration) error
	Snapshot() session.Snapshot
}

// AuthLogin signs in through the gateway and returns the new session.
func AuthLogin(svc sessionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds gateway.Credentials
		if err := validators.DecodeJSONBody(r, &creds); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if _, err := svc.Login(r.Context(), creds); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, svc.Snapshot())
	}
}

// AuthLogout always succeeds; the local session is cleared even if the gateway is unreachable.
func AuthLogout(svc sessionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Logout(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, "Logged out")
	}
}

func AuthRegister(svc sessionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var reg gateway.Registration
		if err := validators.DecodeJSONBody(r, &reg); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Register(r.Context(), reg); err != nil {
			responses.WriteError(r.Context(), logg, w, gateway.Explain(err, "Registration failed"))
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{"message": "Registration successful"})
	}
}

func SessionState(svc sessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, svc.Snapshot())
	}
}
