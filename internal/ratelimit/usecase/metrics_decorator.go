package usecase

import (
	"context"
	"time"

	"github.com/allisson/gatekeeper/internal/metrics"
	"github.com/allisson/gatekeeper/internal/ratelimit/domain"
	userDomain "github.com/allisson/gatekeeper/internal/user/domain"
)

// rateLimitUseCaseWithMetrics decorates RateLimitUseCase with metrics instrumentation.
type rateLimitUseCaseWithMetrics struct {
	next    RateLimitUseCase
	metrics metrics.BusinessMetrics
}

// NewRateLimitUseCaseWithMetrics wraps a RateLimitUseCase with metrics recording.
func NewRateLimitUseCaseWithMetrics(
	useCase RateLimitUseCase,
	m metrics.BusinessMetrics,
) RateLimitUseCase {
	return &rateLimitUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Admit records admission outcomes: allowed, denied, or error.
func (r *rateLimitUseCaseWithMetrics) Admit(
	ctx context.Context,
	user *userDomain.User,
	endpoint string,
) (*domain.Result, error) {
	start := time.Now()
	result, err := r.next.Admit(ctx, user, endpoint)

	status := "allowed"
	switch {
	case err != nil:
		status = "error"
	case !result.Allowed:
		status = "denied"
	}

	r.metrics.RecordOperation(ctx, "ratelimit", "admit", status)
	r.metrics.RecordDuration(ctx, "ratelimit", "admit", time.Since(start), status)

	return result, err
}

// CleanupExpired records metrics for counter cleanup.
func (r *rateLimitUseCaseWithMetrics) CleanupExpired(
	ctx context.Context,
	retention time.Duration,
) (int64, error) {
	start := time.Now()
	deleted, err := r.next.CleanupExpired(ctx, retention)

	status := "success"
	if err != nil {
		status = "error"
	}

	r.metrics.RecordOperation(ctx, "ratelimit", "cleanup_expired", status)
	r.metrics.RecordDuration(ctx, "ratelimit", "cleanup_expired", time.Since(start), status)

	return deleted, err
}
