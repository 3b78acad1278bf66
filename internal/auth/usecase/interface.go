// Package usecase implements the dual-mode authentication resolver and
// capability token issuance.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/gatekeeper/internal/auth/domain"
	sessionDomain "github.com/allisson/gatekeeper/internal/session/domain"
	userDomain "github.com/allisson/gatekeeper/internal/user/domain"
)

// UserRepository is the subset of user persistence needed by authentication.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*userDomain.User, error)
	EnsureFreshness(ctx context.Context, id uuid.UUID, now time.Time) (time.Time, error)
	RotateFreshness(ctx context.Context, id uuid.UUID, now time.Time) error
}

// SessionResolver resolves an opaque session token to a live session.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*sessionDomain.Session, error)
}

// AuthUseCase resolves request credentials into a principal and manages
// capability token issuance.
//
// The two Authenticate methods are deliberately separate: the presence of a
// bearer token commits the request to the token path, and a token failure is
// terminal. Callers must never retry a failed bearer authentication through
// AuthenticateSession.
type AuthUseCase interface {
	// AuthenticateBearer validates a capability token against the user's
	// current freshness timestamp. Returns ErrInvalidToken on any failure.
	AuthenticateBearer(ctx context.Context, token string) (*authDomain.Principal, error)

	// AuthenticateSession resolves a session cookie. Missing, unknown, or
	// expired sessions yield an anonymous principal, not an error.
	AuthenticateSession(ctx context.Context, sessionToken string) (*authDomain.Principal, error)

	// IssueToken rotates the user's freshness timestamp and returns a token
	// sealed with the new value, revoking all previously issued tokens.
	IssueToken(ctx context.Context, userID uuid.UUID) (*authDomain.IssueTokenOutput, error)

	// CurrentToken re-derives the token for the user's stored freshness
	// timestamp without rotating it. Returns empty when no freshness exists.
	CurrentToken(user *userDomain.User) (string, error)
}
