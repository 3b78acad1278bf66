// Package http provides the authentication middleware, the capability token
// endpoint, and the session-facing pages.
package http

import (
	"context"

	authDomain "github.com/allisson/gatekeeper/internal/auth/domain"
)

// principalKey is a context key type for storing the resolved principal.
type principalKey struct{}

// WithPrincipal stores the resolved principal in the context.
// Called by the authentication middleware for every request, including
// anonymous ones.
func WithPrincipal(ctx context.Context, principal *authDomain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// GetPrincipal retrieves the resolved principal from the context.
// Returns (principal, true) if the authentication middleware ran, or
// (nil, false) otherwise.
func GetPrincipal(ctx context.Context) (*authDomain.Principal, bool) {
	principal, ok := ctx.Value(principalKey{}).(*authDomain.Principal)
	return principal, ok
}
