package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/thriftline/marketplace/internal/app/domain/user"
	"github.com/thriftline/marketplace/internal/app/services/sessions"
	apperrors "github.com/thriftline/marketplace/internal/errors"
	"github.com/thriftline/marketplace/internal/httputil"
	"github.com/thriftline/marketplace/pkg/logger"
)

// SessionResolver maps a session cookie value to its user.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (user.User, error)
}

// SessionAuth resolves the session cookie on every request and stores the
// result as an AuthContext. It never rejects a request on its own; handlers
// that need a user are wrapped with RequireAuth.
type SessionAuth struct {
	resolver   SessionResolver
	cookieName string
	logger     *logger.Logger
}

// NewSessionAuth creates the session middleware.
func NewSessionAuth(resolver SessionResolver, cookieName string, log *logger.Logger) *SessionAuth {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	return &SessionAuth{resolver: resolver, cookieName: cookieName, logger: log}
}

// Handler returns the middleware handler
func (m *SessionAuth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := AuthContext{}

		if cookie, err := r.Cookie(m.cookieName); err == nil && cookie.Value != "" {
			u, err := m.resolver.Resolve(r.Context(), cookie.Value)
			switch {
			case err == nil:
				auth.User = &u
			case errors.Is(err, sessions.ErrNoSession):
				m.logger.WithField("trace_id", TraceID(r.Context())).Debug("stale session cookie")
			default:
				httputil.WriteError(w, r, m.logger, apperrors.Internal("Failed to load session", err))
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), auth)))
	})
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !Auth(r.Context()).Authenticated() {
			httputil.Unauthorized(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuthFunc is RequireAuth for handler functions.
func RequireAuthFunc(next http.HandlerFunc) http.Handler {
	return RequireAuth(next)
}
