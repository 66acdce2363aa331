package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/internal/guard"
	"github.com/angelmondragon/storefront/pkg/gateway"
	"github.com/angelmondragon/storefront/pkg/logger"
)

type decider func(context.Context) guard.Decision

type sessionUser interface {
	User() *gateway.User
}

// Authenticated admits any signed-in caller.
func Authenticated(g *guard.Guard, session sessionUser, logg *logger.Logger) func(http.Handler) http.Handler {
	return enforce(g.RequireAuthenticated, session, logg)
}

func enforce(decide decider, session sessionUser, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			decision := decide(ctx)

			switch decision.State {
			case guard.Granted:
				if user := session.User(); user != nil && logg != nil {
					ctx = logg.WithUserID(ctx, user.ID)
					ctx = logg.WithActorRole(ctx, user.Role.String())
				}
				next.ServeHTTP(w, r.WithContext(ctx))
			case guard.Pending:
				w.Header().Set("Retry-After", "1")
				responses.WriteError(ctx, logg, w, decision.Err())
			default:
				if wantsHTML(r) && decision.Redirect != "" {
					http.Redirect(w, r, decision.Redirect, http.StatusSeeOther)
					return
				}
				responses.WriteError(ctx, logg, w, decision.Err())
			}
		})
	}
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
