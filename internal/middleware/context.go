// Package middleware provides HTTP middleware for the marketplace API
package middleware

import (
	"context"

	"github.com/thriftline/marketplace/internal/app/domain/user"
)

type contextKey string

const (
	authKey    contextKey = "auth"
	requestKey contextKey = "request"
)

// AuthContext is the request-scoped authentication result. User is nil for
// anonymous requests.
type AuthContext struct {
	User *user.User
}

// Authenticated reports whether a session resolved to a user.
func (a AuthContext) Authenticated() bool {
	return a.User != nil
}

// UserID returns the authenticated user's id, or "".
func (a AuthContext) UserID() string {
	if a.User == nil {
		return ""
	}
	return a.User.ID
}

// WithAuth returns ctx carrying auth.
func WithAuth(ctx context.Context, auth AuthContext) context.Context {
	if state := requestStateFrom(ctx); state != nil {
		state.userID = auth.UserID()
	}
	return context.WithValue(ctx, authKey, auth)
}

// Auth returns the AuthContext of the request. Requests that never passed
// through SessionAuth are anonymous.
func Auth(ctx context.Context) AuthContext {
	if auth, ok := ctx.Value(authKey).(AuthContext); ok {
		return auth
	}
	return AuthContext{}
}

// CurrentUser returns the authenticated user, if any.
func CurrentUser(ctx context.Context) (user.User, bool) {
	auth := Auth(ctx)
	if !auth.Authenticated() {
		return user.User{}, false
	}
	return *auth.User, true
}

// requestState is shared between the outer logging middleware and the
// handlers it wraps so the access log can include the resolved user.
type requestState struct {
	traceID string
	userID  string
}

func withRequestState(ctx context.Context, state *requestState) context.Context {
	return context.WithValue(ctx, requestKey, state)
}

func requestStateFrom(ctx context.Context) *requestState {
	state, _ := ctx.Value(requestKey).(*requestState)
	return state
}

// TraceID returns the trace id assigned to the request, or "".
func TraceID(ctx context.Context) string {
	if state := requestStateFrom(ctx); state != nil {
		return state.traceID
	}
	return ""
}
