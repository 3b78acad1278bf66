package domain

import (
	"github.com/allisson/gatekeeper/internal/errors"
)

// Authentication errors.
var (
	// ErrInvalidToken covers every bearer token failure: malformed encoding,
	// failed decryption, unknown user, and stale freshness timestamp. Callers
	// must not be able to tell these apart.
	ErrInvalidToken = errors.Wrap(errors.ErrInvalidToken, "invalid capability token")

	// ErrSessionRequired indicates an operation that only a session-authenticated
	// caller may perform.
	ErrSessionRequired = errors.Wrap(errors.ErrUnauthorized, "active session required")

	// ErrSubscriptionRequired indicates the caller's tier does not grant access
	// to the requested route.
	ErrSubscriptionRequired = errors.Wrap(errors.ErrForbidden, "active subscription required")

	// ErrSecretNotConfigured indicates the application secret is missing or
	// could not be loaded from the KMS provider.
	ErrSecretNotConfigured = errors.New("application secret is not configured")
)
