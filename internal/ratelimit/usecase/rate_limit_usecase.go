package usecase

import (
	"context"
	"time"

	"github.com/allisson/gatekeeper/internal/ratelimit/domain"
	userDomain "github.com/allisson/gatekeeper/internal/user/domain"
)

// rateLimitUseCase implements RateLimitUseCase with a persisted fixed window.
type rateLimitUseCase struct {
	rateLimitRepo RateLimitRepository
	tiers         *domain.TierResolver
}

// NewRateLimitUseCase creates a new rate limit use case.
func NewRateLimitUseCase(
	rateLimitRepo RateLimitRepository,
	tiers *domain.TierResolver,
) RateLimitUseCase {
	return &rateLimitUseCase{
		rateLimitRepo: rateLimitRepo,
		tiers:         tiers,
	}
}

// Admit counts the request and decides admission against the user's tier.
//
// The counter increment is atomic in the repository, so concurrent requests
// cannot admit more than the limit: each one observes a count that includes
// every increment that landed before its own.
func (r *rateLimitUseCase) Admit(
	ctx context.Context,
	user *userDomain.User,
	endpoint string,
) (*domain.Result, error) {
	tier := r.tiers.TierFor(user)
	now := time.Now().UTC()

	record, err := r.rateLimitRepo.Increment(ctx, user.ID, endpoint, tier.Window, now)
	if err != nil {
		return nil, err
	}

	remaining := tier.Limit - record.Count
	if remaining < 0 {
		remaining = 0
	}

	return &domain.Result{
		Allowed:   record.Count <= tier.Limit,
		Limit:     tier.Limit,
		Remaining: remaining,
		Window:    tier.Window,
		ResetAt:   record.ResetAt,
	}, nil
}

// CleanupExpired removes counters whose window ended before the retention
// cutoff.
func (r *rateLimitUseCase) CleanupExpired(
	ctx context.Context,
	retention time.Duration,
) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	return r.rateLimitRepo.DeleteExpired(ctx, cutoff)
}
