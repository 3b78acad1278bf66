package http

import (
	"log/slog"
	"net/http"
	stdhttputil "net/http/httputil"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/allisson/gatekeeper/internal/config"
	"github.com/allisson/gatekeeper/internal/httputil"
	sessionUseCase "github.com/allisson/gatekeeper/internal/session/usecase"
)

// SessionHandler fronts the external session provider: sign-in redirects,
// sign-out, and the /auth/* pass-through surface.
type SessionHandler struct {
	sessionUseCase sessionUseCase.UseCase
	config         *config.Config
	proxy          *stdhttputil.ReverseProxy
	logger         *slog.Logger
}

// NewSessionHandler creates a new session handler. The /auth/* reverse proxy
// is only available when SessionProviderURL is configured and valid.
func NewSessionHandler(
	useCase sessionUseCase.UseCase,
	cfg *config.Config,
	logger *slog.Logger,
) *SessionHandler {
	handler := &SessionHandler{
		sessionUseCase: useCase,
		config:         cfg,
		logger:         logger,
	}

	if cfg.SessionProviderURL != "" {
		target, err := url.Parse(cfg.SessionProviderURL)
		if err != nil {
			logger.Warn("invalid session provider URL, /auth/* pass-through disabled",
				slog.String("url", cfg.SessionProviderURL),
				slog.Any("error", err))
		} else {
			handler.proxy = stdhttputil.NewSingleHostReverseProxy(target)
		}
	}

	return handler
}

// SignInHandler redirects the browser to the session provider's sign-in flow.
// GET /signin
func (h *SessionHandler) SignInHandler(c *gin.Context) {
	target := h.config.SessionSignInPath
	if h.config.SessionProviderURL != "" {
		target = strings.TrimSuffix(h.config.SessionProviderURL, "/") + target
	}

	c.Redirect(http.StatusFound, target)
}

// SignOutHandler revokes the current session and clears the cookie.
// GET /signout
//
// Revocation failures are logged but the cookie is cleared and the browser is
// redirected regardless: from the user's point of view they are signed out.
func (h *SessionHandler) SignOutHandler(c *gin.Context) {
	if token, err := c.Cookie(h.config.SessionCookieName); err == nil && token != "" {
		if err := h.sessionUseCase.Revoke(c.Request.Context(), token); err != nil {
			h.logger.Error("failed to revoke session", slog.Any("error", err))
		}
	}

	c.SetCookie(h.config.SessionCookieName, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, "/")
}

// ProxyHandler forwards /auth/* requests to the session provider.
// ANY /auth/*path
func (h *SessionHandler) ProxyHandler(c *gin.Context) {
	if h.proxy == nil {
		c.JSON(http.StatusBadGateway, httputil.ErrorResponse{
			Error:   "bad_gateway",
			Message: "Session provider is not configured",
		})
		return
	}

	h.proxy.ServeHTTP(c.Writer, c.Request)
}
