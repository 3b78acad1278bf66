// Package domain defines the billing webhook payload and its event taxonomy.
package domain

import (
	"github.com/allisson/gatekeeper/internal/errors"
)

// Subscription lifecycle events accepted from the billing provider.
const (
	EventSubscriptionCreated   = "subscription_created"
	EventSubscriptionUpdated   = "subscription_updated"
	EventSubscriptionCancelled = "subscription_cancelled"
	EventSubscriptionExpired   = "subscription_expired"
)

// WebhookPayload is the provider's webhook body. Only the fields the gate
// acts on are mapped.
type WebhookPayload struct {
	Meta WebhookMeta `json:"meta"`
	Data WebhookData `json:"data"`
}

// WebhookMeta carries the event discriminator.
type WebhookMeta struct {
	EventName string `json:"event_name"`
}

// WebhookData identifies the subscription and its owner.
type WebhookData struct {
	ID         string            `json:"id"`
	Attributes WebhookAttributes `json:"attributes"`
}

// WebhookAttributes carries the subscriber's email, the join key to the local
// user record.
type WebhookAttributes struct {
	UserEmail string `json:"user_email"`
}

// IsSupportedEvent reports whether the event is a recognized subscription
// lifecycle event. Unrecognized events are rejected, never silently accepted.
func IsSupportedEvent(eventName string) bool {
	switch eventName {
	case EventSubscriptionCreated,
		EventSubscriptionUpdated,
		EventSubscriptionCancelled,
		EventSubscriptionExpired:
		return true
	}
	return false
}

// ActivatesSubscription reports whether the event sets the subscription
// marker. The remaining supported events clear it.
func ActivatesSubscription(eventName string) bool {
	return eventName == EventSubscriptionCreated || eventName == EventSubscriptionUpdated
}

// Webhook processing errors.
var (
	// ErrInvalidSignature covers a missing signature, a missing secret, and a
	// signature that does not match the body.
	ErrInvalidSignature = errors.Wrap(errors.ErrUnauthorized, "invalid webhook signature")

	// ErrUnsupportedEvent indicates an event name outside the subscription
	// lifecycle set.
	ErrUnsupportedEvent = errors.Wrap(errors.ErrInvalidInput, "unsupported webhook event")

	// ErrEmailMissing indicates the payload carries no subscriber email.
	ErrEmailMissing = errors.Wrap(errors.ErrInvalidInput, "webhook payload has no user email")

	// ErrMalformedPayload indicates the body is not valid JSON for the
	// expected shape.
	ErrMalformedPayload = errors.Wrap(errors.ErrInvalidInput, "malformed webhook payload")
)
