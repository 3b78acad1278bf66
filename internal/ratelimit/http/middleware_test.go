package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authDomain "github.com/allisson/gatekeeper/internal/auth/domain"
	authHTTP "github.com/allisson/gatekeeper/internal/auth/http"
	apperrors "github.com/allisson/gatekeeper/internal/errors"
	"github.com/allisson/gatekeeper/internal/ratelimit/domain"
	userDomain "github.com/allisson/gatekeeper/internal/user/domain"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// mockRateLimitUseCase is a mock implementation of RateLimitUseCase for testing.
type mockRateLimitUseCase struct {
	mock.Mock
}

func (m *mockRateLimitUseCase) Admit(
	ctx context.Context,
	user *userDomain.User,
	endpoint string,
) (*domain.Result, error) {
	args := m.Called(ctx, user, endpoint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Result), args.Error(1)
}

func (m *mockRateLimitUseCase) CleanupExpired(
	ctx context.Context,
	retention time.Duration,
) (int64, error) {
	args := m.Called(ctx, retention)
	return args.Get(0).(int64), args.Error(1)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func injectPrincipal(principal *authDomain.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(authHTTP.WithPrincipal(c.Request.Context(), principal))
		c.Next()
	}
}

func authenticatedPrincipal() *authDomain.Principal {
	return &authDomain.Principal{
		Kind: authDomain.PrincipalBearer,
		User: &userDomain.User{ID: uuid.Must(uuid.NewV7()), Email: "user@example.com"},
	}
}

func newLimitedRouter(useCase *mockRateLimitUseCase, principal *authDomain.Principal) *gin.Engine {
	router := gin.New()
	router.Use(injectPrincipal(principal))
	router.Use(RateLimitMiddleware(useCase, newTestLogger()))
	router.GET("/api/v1/hello/:name", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("allowed request carries quota headers", func(t *testing.T) {
		principal := authenticatedPrincipal()
		resetAt := time.Now().UTC().Add(time.Hour).Truncate(time.Second)

		useCase := &mockRateLimitUseCase{}
		useCase.On("Admit", mock.Anything, principal.User, "/api/v1/hello/:name").
			Return(&domain.Result{
				Allowed:   true,
				Limit:     100,
				Remaining: 99,
				Window:    time.Hour,
				ResetAt:   resetAt,
			}, nil).Once()

		router := newLimitedRouter(useCase, principal)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/hello/world", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "100", recorder.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "99", recorder.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t,
			strconv.FormatInt(resetAt.Unix(), 10),
			recorder.Header().Get("X-RateLimit-Reset"))
		useCase.AssertExpectations(t)
	})

	t.Run("denied request gets 429 with quota metadata", func(t *testing.T) {
		principal := authenticatedPrincipal()
		resetAt := time.Now().UTC().Add(30 * time.Minute)

		useCase := &mockRateLimitUseCase{}
		useCase.On("Admit", mock.Anything, principal.User, "/api/v1/hello/:name").
			Return(&domain.Result{
				Allowed:   false,
				Limit:     100,
				Remaining: 0,
				Window:    time.Hour,
				ResetAt:   resetAt,
			}, nil).Once()

		router := newLimitedRouter(useCase, principal)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/hello/world", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusTooManyRequests, recorder.Code)
		assert.NotEmpty(t, recorder.Header().Get("Retry-After"))
		assert.Equal(t, "0", recorder.Header().Get("X-RateLimit-Remaining"))

		var body map[string]any
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
		assert.Equal(t, "rate_limit_exceeded", body["error"])
		assert.Equal(t, float64(100), body["limit"])
		assert.Equal(t, float64(3600), body["window"])
		assert.Equal(t, float64(0), body["remaining"])
		assert.Equal(t, float64(resetAt.Unix()), body["reset"])
	})

	t.Run("anonymous request bypasses the quota", func(t *testing.T) {
		useCase := &mockRateLimitUseCase{}

		router := newLimitedRouter(useCase, authDomain.Anonymous())

		req := httptest.NewRequest(http.MethodGet, "/api/v1/hello/world", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Empty(t, recorder.Header().Get("X-RateLimit-Limit"))
		useCase.AssertNotCalled(t, "Admit")
	})

	t.Run("counter failure fails closed", func(t *testing.T) {
		principal := authenticatedPrincipal()

		useCase := &mockRateLimitUseCase{}
		useCase.On("Admit", mock.Anything, principal.User, "/api/v1/hello/:name").
			Return(nil, apperrors.New("boom")).Once()

		router := newLimitedRouter(useCase, principal)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/hello/world", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	})
}
