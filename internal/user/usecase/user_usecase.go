package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/gatekeeper/internal/user/domain"
	customValidation "github.com/allisson/gatekeeper/internal/validation"

	validation "github.com/jellydator/validation"
)

// userUseCase implements UseCase for user management.
type userUseCase struct {
	userRepo UserRepository
}

// NewUserUseCase creates a new user use case.
func NewUserUseCase(userRepo UserRepository) UseCase {
	return &userUseCase{userRepo: userRepo}
}

// Create validates the email and inserts a new user. The freshness timestamp
// starts unset and is established lazily on first authenticated access.
func (u *userUseCase) Create(ctx context.Context, email string) (*domain.User, error) {
	if email == "" {
		return nil, domain.ErrEmailRequired
	}
	if err := validation.Validate(email, customValidation.Email{}); err != nil {
		return nil, domain.ErrInvalidEmail
	}

	user := &domain.User{
		ID:        uuid.Must(uuid.NewV7()),
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	user.UpdatedAt = user.CreatedAt

	if err := u.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Get retrieves a user by ID.
func (u *userUseCase) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return u.userRepo.GetByID(ctx, id)
}

// GetByEmail retrieves a user by email.
func (u *userUseCase) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return u.userRepo.GetByEmail(ctx, email)
}
