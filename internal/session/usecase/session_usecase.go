// Package usecase implements session resolution against the external provider's store.
package usecase

import (
	"context"
	"time"

	"github.com/allisson/gatekeeper/internal/session/domain"
)

// SessionRepository defines the persistence contract for provider-managed sessions.
type SessionRepository interface {
	GetByToken(ctx context.Context, token string) (*domain.Session, error)
	Delete(ctx context.Context, token string) error
}

// UseCase defines session resolution operations.
type UseCase interface {
	// Resolve returns the session for the token, or ErrSessionNotFound when the
	// token is empty, unknown, or expired.
	Resolve(ctx context.Context, token string) (*domain.Session, error)

	// Revoke deletes the session for the token. Missing sessions are ignored.
	Revoke(ctx context.Context, token string) error
}

// sessionUseCase implements UseCase.
type sessionUseCase struct {
	sessionRepo SessionRepository
}

// NewSessionUseCase creates a new session use case.
func NewSessionUseCase(sessionRepo SessionRepository) UseCase {
	return &sessionUseCase{sessionRepo: sessionRepo}
}

// Resolve looks up the session and enforces expiry. Expired sessions are
// indistinguishable from missing ones to callers.
func (s *sessionUseCase) Resolve(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, domain.ErrSessionNotFound
	}

	session, err := s.sessionRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if session.IsExpired(time.Now().UTC()) {
		return nil, domain.ErrSessionNotFound
	}

	return session, nil
}

// Revoke deletes the session.
func (s *sessionUseCase) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessionRepo.Delete(ctx, token)
}
