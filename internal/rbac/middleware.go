// Package rbac resolves the authenticated actor and gates routes by role.
package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tmc6backup-cloud/e-kendali-suma/internal/shared"
)

// ProfileSource resolves session user ids into actors.
type ProfileSource interface {
	ActorByID(ctx context.Context, id string) (*shared.Actor, error)
}

// Middleware wires role-based authorization helpers for HTTP handlers.
type Middleware struct {
	Profiles ProfileSource
	Logger   *slog.Logger
}

// WithActor loads the actor for the session user into the request context.
// Requests without a logged-in user pass through with no actor attached.
func (m Middleware) WithActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || strings.TrimSpace(sess.User()) == "" {
			next.ServeHTTP(w, r)
			return
		}
		actor, err := m.Profiles.ActorByID(r.Context(), sess.User())
		if err != nil {
			if m.Logger != nil {
				m.Logger.Warn("resolve actor", slog.String("user", sess.User()), slog.Any("error", err))
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
	})
}

// RequireAuthenticated rejects requests without a resolved actor.
func (m Middleware) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shared.ActorFromContext(r.Context()) == nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAny ensures the current actor holds at least one of the given roles.
func (m Middleware) RequireAny(roles ...shared.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := shared.ActorFromContext(r.Context())
			if actor == nil {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			if len(roles) == 0 || hasAnyRole(actor.Role, roles) {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

// RequireValidator admits any role that participates in the review chain.
func (m Middleware) RequireValidator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := shared.ActorFromContext(r.Context())
		if actor == nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		if !actor.Role.IsValidator() {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func hasAnyRole(held shared.Role, required []shared.Role) bool {
	for _, role := range required {
		if held == role {
			return true
		}
	}
	return false
}
