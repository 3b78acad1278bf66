// Package domain defines the core user domain entities and types.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/gatekeeper/internal/errors"
)

// User represents an identity in the system. Subscription state drives quota
// tier resolution and LastKeyGeneratedAt is the freshness timestamp embedded in
// capability tokens: rotating it invalidates every previously issued token.
type User struct {
	ID                 uuid.UUID
	Email              string
	SubscriptionID     *string
	LastKeyGeneratedAt *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// HasActiveSubscription reports whether the user carries a subscription marker.
func (u *User) HasActiveSubscription() bool {
	return u.SubscriptionID != nil && *u.SubscriptionID != ""
}

// FreshnessMillis returns the freshness timestamp normalized to unix
// milliseconds, or false if no freshness has been established yet. Tokens embed
// this value and validation compares it for exact equality.
func (u *User) FreshnessMillis() (int64, bool) {
	if u.LastKeyGeneratedAt == nil {
		return 0, false
	}
	return u.LastKeyGeneratedAt.UnixMilli(), true
}

// Domain-specific errors for user operations.
var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.Wrap(errors.ErrNotFound, "user not found")

	// ErrUserAlreadyExists indicates a user with the same email already exists.
	ErrUserAlreadyExists = errors.Wrap(errors.ErrConflict, "user already exists")

	// ErrEmailRequired indicates the email field is required.
	ErrEmailRequired = errors.Wrap(errors.ErrInvalidInput, "email is required")

	// ErrInvalidEmail indicates the email format is invalid.
	ErrInvalidEmail = errors.Wrap(errors.ErrInvalidInput, "invalid email format")
)
