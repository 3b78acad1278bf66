// Package usecase implements quota admission for authenticated requests.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/gatekeeper/internal/ratelimit/domain"
	userDomain "github.com/allisson/gatekeeper/internal/user/domain"
)

// RateLimitRepository defines the persistence contract for window counters.
type RateLimitRepository interface {
	Increment(
		ctx context.Context,
		userID uuid.UUID,
		endpoint string,
		window time.Duration,
		now time.Time,
	) (*domain.Record, error)
	Get(ctx context.Context, userID uuid.UUID, endpoint string) (*domain.Record, error)
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// RateLimitUseCase admits or denies requests against the caller's tier quota.
type RateLimitUseCase interface {
	// Admit counts the request against the user's window for the endpoint and
	// reports whether it fits the tier quota, with the metadata needed for the
	// X-RateLimit response headers. Denied requests are counted too; denial
	// never extends the window.
	Admit(ctx context.Context, user *userDomain.User, endpoint string) (*domain.Result, error)

	// CleanupExpired removes counters for windows that ended before now minus
	// the retention period. Returns the number of removed counters.
	CleanupExpired(ctx context.Context, retention time.Duration) (int64, error)
}
