package http

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	authDomain "github.com/allisson/gatekeeper/internal/auth/domain"
	authUseCase "github.com/allisson/gatekeeper/internal/auth/usecase"
	apperrors "github.com/allisson/gatekeeper/internal/errors"
	"github.com/allisson/gatekeeper/internal/httputil"
)

// AuthenticationMiddleware resolves the caller's credentials into a principal
// for every request.
//
// Resolution is dual-mode and the mode is chosen up front:
//  1. An Authorization header with a Bearer scheme commits the request to the
//     token path. A token failure is terminal (401) and never falls back to
//     the session cookie.
//  2. Otherwise the session cookie is resolved. A missing or dead session
//     yields an anonymous principal, not a rejection; route guards decide
//     whether anonymity is acceptable.
//
// The resolved principal is stored in the request context for downstream
// middleware and handlers via GetPrincipal().
func AuthenticationMiddleware(
	useCase authUseCase.AuthUseCase,
	sessionCookieName string,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		const bearerPrefix = "bearer "

		authHeader := c.GetHeader("Authorization")
		if len(authHeader) >= len(bearerPrefix) &&
			strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
			token := authHeader[len(bearerPrefix):]

			principal, err := useCase.AuthenticateBearer(c.Request.Context(), token)
			if err != nil {
				logger.Debug("bearer authentication failed", slog.String("error", err.Error()))
				httputil.HandleErrorGin(c, err, logger)
				c.Abort()
				return
			}

			c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), principal))
			c.Next()
			return
		}

		// Cookie errors only mean the cookie is absent.
		sessionToken, _ := c.Cookie(sessionCookieName)

		principal, err := useCase.AuthenticateSession(c.Request.Context(), sessionToken)
		if err != nil {
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), principal))
		c.Next()
	}
}

// RequireAuthenticated rejects anonymous requests with 401.
// Must run after AuthenticationMiddleware.
func RequireAuthenticated(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c.Request.Context())
		if !ok || !principal.IsAuthenticated() {
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireSubscription rejects callers without an active subscription with 403.
// Must run after AuthenticationMiddleware; anonymous callers get 401.
func RequireSubscription(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c.Request.Context())
		if !ok || !principal.IsAuthenticated() {
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		if !principal.User.HasActiveSubscription() {
			logger.Debug("subscription required",
				slog.String("user_id", principal.User.ID.String()))
			httputil.HandleErrorGin(c, authDomain.ErrSubscriptionRequired, logger)
			c.Abort()
			return
		}

		c.Next()
	}
}
