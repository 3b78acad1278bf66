// Package http provides the quota enforcement middleware for protected routes.
package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	authHTTP "github.com/allisson/gatekeeper/internal/auth/http"
	"github.com/allisson/gatekeeper/internal/httputil"
	rateLimitUseCase "github.com/allisson/gatekeeper/internal/ratelimit/usecase"
)

// RateLimitMiddleware enforces the per-user, per-endpoint quota on
// authenticated requests.
//
// MUST run after the authentication middleware. Anonymous requests pass
// through untouched: quota is a property of an identity, and routes that
// require one reject anonymity themselves.
//
// Every admitted response carries X-RateLimit-Limit, X-RateLimit-Remaining,
// and X-RateLimit-Reset headers, including the first request of a window.
// Denied requests get 429 with the same metadata in the body and a
// Retry-After header.
//
// The endpoint key is the route template (e.g. "/api/v1/hello"), so requests
// to the same route with different parameters share one counter.
func RateLimitMiddleware(
	useCase rateLimitUseCase.RateLimitUseCase,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := authHTTP.GetPrincipal(c.Request.Context())
		if !ok || !principal.IsAuthenticated() {
			c.Next()
			return
		}

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}

		result, err := useCase.Admit(c.Request.Context(), principal.User, endpoint)
		if err != nil {
			// Fail closed: an unreadable counter must not grant free requests.
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		reset := result.ResetAt.Unix()
		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(reset, 10))

		if !result.Allowed {
			retryAfter := int(time.Until(result.ResetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}

			logger.Debug("rate limit exceeded",
				slog.String("user_id", principal.User.ID.String()),
				slog.String("endpoint", endpoint),
				slog.Int("limit", result.Limit))

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.JSON(http.StatusTooManyRequests, httputil.RateLimitResponse{
				Error:     "rate_limit_exceeded",
				Message:   "Request quota exhausted for the current window",
				Limit:     result.Limit,
				Window:    int64(result.Window.Seconds()),
				Remaining: result.Remaining,
				Reset:     reset,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
