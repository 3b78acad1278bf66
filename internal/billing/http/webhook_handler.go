// Package http provides the billing webhook endpoint.
package http

import (
	"crypto/sha256"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/jellydator/validation"

	"github.com/allisson/gatekeeper/internal/billing/domain"
	billingUseCase "github.com/allisson/gatekeeper/internal/billing/usecase"
	"github.com/allisson/gatekeeper/internal/httputil"
	customValidation "github.com/allisson/gatekeeper/internal/validation"
)

// signatureHeader carries the provider's hex HMAC over the request body.
const signatureHeader = "x-signature"

// WebhookHandler handles billing provider webhook deliveries.
type WebhookHandler struct {
	webhookUseCase billingUseCase.WebhookUseCase
	logger         *slog.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(useCase billingUseCase.WebhookUseCase, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{webhookUseCase: useCase, logger: logger}
}

// ReceiveHandler accepts one webhook delivery.
// POST /webhook - authenticated by the x-signature header, not by a principal.
func (h *WebhookHandler) ReceiveHandler(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	signature := c.GetHeader(signatureHeader)

	// A genuine signature is always a hex SHA-256 digest. Anything else is
	// rejected before the payload is touched.
	if err := validation.Validate(signature, customValidation.HexSignature{ByteLen: sha256.Size}); err != nil {
		httputil.HandleErrorGin(c, domain.ErrInvalidSignature, h.logger)
		return
	}

	if err := h.webhookUseCase.Process(c.Request.Context(), body, signature); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.logger.Info("webhook processed")

	c.JSON(http.StatusOK, gin.H{"message": "Webhook received"})
}
