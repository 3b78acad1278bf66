// Package usecase implements billing webhook processing: signature
// verification, event dispatch, and subscription marker updates.
package usecase

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/allisson/gatekeeper/internal/billing/domain"
	billingService "github.com/allisson/gatekeeper/internal/billing/service"
	"github.com/allisson/gatekeeper/internal/database"
	userDomain "github.com/allisson/gatekeeper/internal/user/domain"
)

// UserRepository is the subset of user persistence needed by webhook processing.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*userDomain.User, error)
	SetSubscription(ctx context.Context, id uuid.UUID, subscriptionID *string) error
}

// WebhookUseCase processes billing provider webhooks.
type WebhookUseCase interface {
	// Process verifies the signature over the raw body, then applies the
	// subscription change the event describes. Nothing is mutated unless the
	// signature verifies.
	Process(ctx context.Context, body []byte, signatureHex string) error
}

// webhookUseCase implements WebhookUseCase.
type webhookUseCase struct {
	userRepo  UserRepository
	verifier  billingService.SignatureVerifier
	txManager database.TxManager
	secret    string
}

// NewWebhookUseCase creates a new webhook use case.
func NewWebhookUseCase(
	userRepo UserRepository,
	verifier billingService.SignatureVerifier,
	txManager database.TxManager,
	secret string,
) WebhookUseCase {
	return &webhookUseCase{
		userRepo:  userRepo,
		verifier:  verifier,
		txManager: txManager,
		secret:    secret,
	}
}

// Process handles one webhook delivery.
//
// The signature is verified over the raw body bytes before anything is
// parsed. Activating events (created, updated) set the subscription marker to
// the event's subscription ID; the remaining lifecycle events clear it.
// Redelivered events are harmless: applying the same event twice writes the
// same marker.
func (w *webhookUseCase) Process(ctx context.Context, body []byte, signatureHex string) error {
	if w.secret == "" || signatureHex == "" {
		return domain.ErrInvalidSignature
	}

	if !w.verifier.Verify(w.secret, signatureHex, body) {
		return domain.ErrInvalidSignature
	}

	var payload domain.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.ErrMalformedPayload
	}

	if !domain.IsSupportedEvent(payload.Meta.EventName) {
		return domain.ErrUnsupportedEvent
	}

	if payload.Data.Attributes.UserEmail == "" {
		return domain.ErrEmailMissing
	}

	// The lookup and the marker write share one transaction so a concurrent
	// account deletion cannot slip between them.
	return w.txManager.WithTx(ctx, func(ctx context.Context) error {
		user, err := w.userRepo.GetByEmail(ctx, payload.Data.Attributes.UserEmail)
		if err != nil {
			return err
		}

		var subscriptionID *string
		if domain.ActivatesSubscription(payload.Meta.EventName) {
			subscriptionID = &payload.Data.ID
		}

		return w.userRepo.SetSubscription(ctx, user.ID, subscriptionID)
	})
}
