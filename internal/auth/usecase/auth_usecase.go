package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/gatekeeper/internal/auth/domain"
	authService "github.com/allisson/gatekeeper/internal/auth/service"
	sessionDomain "github.com/allisson/gatekeeper/internal/session/domain"
	userDomain "github.com/allisson/gatekeeper/internal/user/domain"
)

// authUseCase implements AuthUseCase.
type authUseCase struct {
	userRepo   UserRepository
	sessions   SessionResolver
	keyService authService.KeyService
}

// NewAuthUseCase creates a new authentication use case.
func NewAuthUseCase(
	userRepo UserRepository,
	sessions SessionResolver,
	keyService authService.KeyService,
) AuthUseCase {
	return &authUseCase{
		userRepo:   userRepo,
		sessions:   sessions,
		keyService: keyService,
	}
}

// AuthenticateBearer validates a capability token.
//
// The token is valid only when its embedded freshness timestamp equals the
// user's stored one to the millisecond. Users who have never been issued a
// token get their freshness initialized lazily here, which by construction
// cannot match a token sealed earlier.
//
// Security Notes:
//   - Returns ErrInvalidToken for undecryptable tokens, unknown users, and
//     stale freshness alike, to prevent token probing
//   - A bearer failure is terminal; callers must not fall back to the session
func (a *authUseCase) AuthenticateBearer(
	ctx context.Context,
	token string,
) (*authDomain.Principal, error) {
	parsed, err := a.keyService.ParseKey(token)
	if err != nil {
		return nil, err
	}

	user, err := a.userRepo.GetByID(ctx, parsed.UserID)
	if err != nil {
		if errors.Is(err, userDomain.ErrUserNotFound) {
			return nil, authDomain.ErrInvalidToken
		}
		return nil, err
	}

	storedMillis, err := a.ensureFreshness(ctx, user)
	if err != nil {
		return nil, err
	}

	if storedMillis != parsed.FreshnessMillis {
		return nil, authDomain.ErrInvalidToken
	}

	return &authDomain.Principal{Kind: authDomain.PrincipalBearer, User: user}, nil
}

// AuthenticateSession resolves a session cookie to a principal. A request with
// no usable session is anonymous, never an error: route guards decide whether
// anonymity is acceptable.
func (a *authUseCase) AuthenticateSession(
	ctx context.Context,
	sessionToken string,
) (*authDomain.Principal, error) {
	session, err := a.sessions.Resolve(ctx, sessionToken)
	if err != nil {
		if errors.Is(err, sessionDomain.ErrSessionNotFound) {
			return authDomain.Anonymous(), nil
		}
		return nil, err
	}

	user, err := a.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		// A session pointing at a deleted user is treated as no session.
		if errors.Is(err, userDomain.ErrUserNotFound) {
			return authDomain.Anonymous(), nil
		}
		return nil, err
	}

	if _, err := a.ensureFreshness(ctx, user); err != nil {
		return nil, err
	}

	return &authDomain.Principal{
		Kind:    authDomain.PrincipalSession,
		User:    user,
		Session: session,
	}, nil
}

// IssueToken rotates the user's freshness timestamp and seals a token with the
// new value. Every token issued before this call becomes invalid.
func (a *authUseCase) IssueToken(
	ctx context.Context,
	userID uuid.UUID,
) (*authDomain.IssueTokenOutput, error) {
	generatedAt := time.Now().UTC().Truncate(time.Millisecond)

	if err := a.userRepo.RotateFreshness(ctx, userID, generatedAt); err != nil {
		return nil, err
	}

	token, err := a.keyService.IssueKey(userID, generatedAt)
	if err != nil {
		return nil, err
	}

	return &authDomain.IssueTokenOutput{Token: token, GeneratedAt: generatedAt}, nil
}

// CurrentToken re-derives the user's token from the stored freshness timestamp
// without any database write. Used by the landing page to display the token
// the user already holds.
func (a *authUseCase) CurrentToken(user *userDomain.User) (string, error) {
	if user == nil || user.LastKeyGeneratedAt == nil {
		return "", nil
	}
	return a.keyService.IssueKey(user.ID, *user.LastKeyGeneratedAt)
}

// ensureFreshness lazily initializes the user's freshness timestamp and
// returns the stored value in unix milliseconds. Concurrent first accesses
// converge on a single stored value.
func (a *authUseCase) ensureFreshness(ctx context.Context, user *userDomain.User) (int64, error) {
	if millis, ok := user.FreshnessMillis(); ok {
		return millis, nil
	}

	now := time.Now().UTC().Truncate(time.Millisecond)

	stored, err := a.userRepo.EnsureFreshness(ctx, user.ID, now)
	if err != nil {
		return 0, err
	}

	user.LastKeyGeneratedAt = &stored
	return stored.UnixMilli(), nil
}
