// Package domain defines the persisted fixed-window rate limit entities and
// the subscription tier resolver.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/gatekeeper/internal/errors"
	userDomain "github.com/allisson/gatekeeper/internal/user/domain"
)

// ErrRecordNotFound indicates no counter exists for the user and endpoint.
var ErrRecordNotFound = errors.Wrap(errors.ErrNotFound, "rate limit record not found")

// Record is one user's counter for one endpoint in the current window.
// The (UserID, Endpoint) pair is unique; the counter survives restarts.
type Record struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Endpoint  string
	Count     int
	ResetAt   time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Tier is a quota class: how many requests fit in one window.
type Tier struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Result is the outcome of admitting one request against a tier.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	Window    time.Duration
	ResetAt   time.Time
}

// Tier names.
const (
	TierFree    = "free"
	TierPaid    = "paid"
	TierDefault = "default"
)

// defaultTierLimit is the limit of the defensive fallback tier. The resolver
// below always answers free or paid, so this tier is unreachable; it exists so
// that a future tier source that can return "no tier" fails closed with a tiny
// quota instead of an unlimited one.
const defaultTierLimit = 10

// TierResolver maps a user to its quota tier. Resolution is a pure function
// of the user's subscription state.
type TierResolver struct {
	free     Tier
	paid     Tier
	fallback Tier
}

// NewTierResolver creates a TierResolver with the configured limits. Both
// tiers share the same fixed window length.
func NewTierResolver(freeLimit, paidLimit int, window time.Duration) *TierResolver {
	return &TierResolver{
		free:     Tier{Name: TierFree, Limit: freeLimit, Window: window},
		paid:     Tier{Name: TierPaid, Limit: paidLimit, Window: window},
		fallback: Tier{Name: TierDefault, Limit: defaultTierLimit, Window: window},
	}
}

// TierFor returns the tier for a user: paid with an active subscription, free
// without one. Anonymous callers have no tier and must not reach the rate
// limiter at all.
func (t *TierResolver) TierFor(user *userDomain.User) Tier {
	if user == nil {
		return t.fallback
	}
	if user.HasActiveSubscription() {
		return t.paid
	}
	return t.free
}
