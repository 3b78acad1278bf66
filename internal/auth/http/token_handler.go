package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	authDomain "github.com/allisson/gatekeeper/internal/auth/domain"
	"github.com/allisson/gatekeeper/internal/auth/http/dto"
	authUseCase "github.com/allisson/gatekeeper/internal/auth/usecase"
	"github.com/allisson/gatekeeper/internal/httputil"
)

// TokenHandler handles capability token issuance.
type TokenHandler struct {
	authUseCase authUseCase.AuthUseCase
	logger      *slog.Logger
}

// NewTokenHandler creates a new token handler.
func NewTokenHandler(useCase authUseCase.AuthUseCase, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{authUseCase: useCase, logger: logger}
}

// IssueHandler issues a fresh capability token for the signed-in user.
// POST /auth/token - requires a session-authenticated caller.
//
// Issuing rotates the user's freshness timestamp, so the returned key is the
// only valid one from this moment on. Bearer-authenticated callers are
// rejected: a key must not be able to mint its own successor.
func (h *TokenHandler) IssueHandler(c *gin.Context) {
	principal, ok := GetPrincipal(c.Request.Context())
	if !ok || principal.Kind != authDomain.PrincipalSession || principal.User == nil {
		httputil.HandleErrorGin(c, authDomain.ErrSessionRequired, h.logger)
		return
	}

	output, err := h.authUseCase.IssueToken(c.Request.Context(), principal.User.ID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.logger.Info("capability token issued",
		slog.String("user_id", principal.User.ID.String()))

	c.JSON(http.StatusOK, dto.IssueTokenResponse{
		Key:         output.Token,
		GeneratedAt: output.GeneratedAt,
	})
}
