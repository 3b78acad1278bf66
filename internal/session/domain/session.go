// Package domain defines the session entities consumed from the external
// session provider. Sessions are owned and written by the provider; this
// service only reads them to resolve identities and deletes them on signout.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/gatekeeper/internal/errors"
)

// Session is an opaque provider-managed credential that maps a cookie token to
// a user for a bounded lifetime.
type Session struct {
	Token     string
	UserID    uuid.UUID
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired reports whether the session lifetime has passed at the given instant.
func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Domain-specific errors for session operations.
var (
	// ErrSessionNotFound indicates no usable session exists for the token.
	// Expired sessions are reported identically to missing ones.
	ErrSessionNotFound = errors.Wrap(errors.ErrNotFound, "session not found")
)
