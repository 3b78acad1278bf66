package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/gatekeeper/internal/auth/domain"
	"github.com/allisson/gatekeeper/internal/metrics"
	userDomain "github.com/allisson/gatekeeper/internal/user/domain"
)

// authUseCaseWithMetrics decorates AuthUseCase with metrics instrumentation.
type authUseCaseWithMetrics struct {
	next    AuthUseCase
	metrics metrics.BusinessMetrics
}

// NewAuthUseCaseWithMetrics wraps an AuthUseCase with metrics recording.
func NewAuthUseCaseWithMetrics(useCase AuthUseCase, m metrics.BusinessMetrics) AuthUseCase {
	return &authUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// AuthenticateBearer records metrics for bearer authentication.
func (a *authUseCaseWithMetrics) AuthenticateBearer(
	ctx context.Context,
	token string,
) (*authDomain.Principal, error) {
	start := time.Now()
	principal, err := a.next.AuthenticateBearer(ctx, token)

	status := "success"
	if err != nil {
		status = "error"
	}

	a.metrics.RecordOperation(ctx, "auth", "authenticate_bearer", status)
	a.metrics.RecordDuration(ctx, "auth", "authenticate_bearer", time.Since(start), status)

	return principal, err
}

// AuthenticateSession records metrics for session authentication.
func (a *authUseCaseWithMetrics) AuthenticateSession(
	ctx context.Context,
	sessionToken string,
) (*authDomain.Principal, error) {
	start := time.Now()
	principal, err := a.next.AuthenticateSession(ctx, sessionToken)

	status := "success"
	if err != nil {
		status = "error"
	}

	a.metrics.RecordOperation(ctx, "auth", "authenticate_session", status)
	a.metrics.RecordDuration(ctx, "auth", "authenticate_session", time.Since(start), status)

	return principal, err
}

// IssueToken records metrics for token issuance.
func (a *authUseCaseWithMetrics) IssueToken(
	ctx context.Context,
	userID uuid.UUID,
) (*authDomain.IssueTokenOutput, error) {
	start := time.Now()
	output, err := a.next.IssueToken(ctx, userID)

	status := "success"
	if err != nil {
		status = "error"
	}

	a.metrics.RecordOperation(ctx, "auth", "issue_token", status)
	a.metrics.RecordDuration(ctx, "auth", "issue_token", time.Since(start), status)

	return output, err
}

// CurrentToken is a pure derivation; it is not instrumented.
func (a *authUseCaseWithMetrics) CurrentToken(user *userDomain.User) (string, error) {
	return a.next.CurrentToken(user)
}
