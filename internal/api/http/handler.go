// Package http provides the protected API endpoints behind the access gate.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	authHTTP "github.com/allisson/gatekeeper/internal/auth/http"
	apperrors "github.com/allisson/gatekeeper/internal/errors"
	"github.com/allisson/gatekeeper/internal/httputil"
	rateLimitDomain "github.com/allisson/gatekeeper/internal/ratelimit/domain"
)

// MeResponse describes the authenticated caller.
type MeResponse struct {
	ID                 string     `json:"id"`
	Email              string     `json:"email"`
	Tier               string     `json:"tier"`
	SubscriptionID     *string    `json:"subscription_id,omitempty"`
	LastKeyGeneratedAt *time.Time `json:"last_key_generated_at,omitempty"`
}

// APIHandler serves the protected API surface.
type APIHandler struct {
	logger *slog.Logger
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(logger *slog.Logger) *APIHandler {
	return &APIHandler{logger: logger}
}

// MeHandler returns the caller's own identity.
// GET /api/v1/me - any authenticated caller.
func (h *APIHandler) MeHandler(c *gin.Context) {
	principal, ok := authHTTP.GetPrincipal(c.Request.Context())
	if !ok || !principal.IsAuthenticated() {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	user := principal.User

	tier := rateLimitDomain.TierFree
	if user.HasActiveSubscription() {
		tier = rateLimitDomain.TierPaid
	}

	c.JSON(http.StatusOK, MeResponse{
		ID:                 user.ID.String(),
		Email:              user.Email,
		Tier:               tier,
		SubscriptionID:     user.SubscriptionID,
		LastKeyGeneratedAt: user.LastKeyGeneratedAt,
	})
}

// HelloHandler is the subscription-gated sample endpoint.
// GET /api/v1/hello - requires an active subscription (enforced by middleware).
func (h *APIHandler) HelloHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Hello World"})
}
