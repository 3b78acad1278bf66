// Package usecase implements business logic orchestration for user operations.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/gatekeeper/internal/user/domain"
)

// UserRepository defines the persistence contract for users.
//
// EnsureFreshness and RotateFreshness are the two freshness mutations:
// EnsureFreshness is the idempotent lazy initialization used on first
// authenticated access, RotateFreshness is the unconditional write used by
// token issuance to revoke previously issued tokens.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	EnsureFreshness(ctx context.Context, id uuid.UUID, now time.Time) (time.Time, error)
	RotateFreshness(ctx context.Context, id uuid.UUID, now time.Time) error
	SetSubscription(ctx context.Context, id uuid.UUID, subscriptionID *string) error
}

// UseCase defines the user management operations exposed to handlers and CLI commands.
type UseCase interface {
	Create(ctx context.Context, email string) (*domain.User, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}
