// Package http provides the HTTP server and route wiring for the access gate.
package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authDomain "github.com/allisson/gatekeeper/internal/auth/domain"
	"github.com/allisson/gatekeeper/internal/config"
	"github.com/allisson/gatekeeper/internal/metrics"
	rateLimitDomain "github.com/allisson/gatekeeper/internal/ratelimit/domain"
	sessionDomain "github.com/allisson/gatekeeper/internal/session/domain"
	userDomain "github.com/allisson/gatekeeper/internal/user/domain"
)

// TestMain sets Gin to test mode for all tests in this package.
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// mockAuthUseCase is a mock implementation of the auth use case for testing.
type mockAuthUseCase struct {
	mock.Mock
}

func (m *mockAuthUseCase) AuthenticateBearer(
	ctx context.Context,
	token string,
) (*authDomain.Principal, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authDomain.Principal), args.Error(1)
}

func (m *mockAuthUseCase) AuthenticateSession(
	ctx context.Context,
	sessionToken string,
) (*authDomain.Principal, error) {
	args := m.Called(ctx, sessionToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authDomain.Principal), args.Error(1)
}

func (m *mockAuthUseCase) IssueToken(
	ctx context.Context,
	userID uuid.UUID,
) (*authDomain.IssueTokenOutput, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authDomain.IssueTokenOutput), args.Error(1)
}

func (m *mockAuthUseCase) CurrentToken(user *userDomain.User) (string, error) {
	args := m.Called(user)
	return args.String(0), args.Error(1)
}

// mockSessionUseCase is a mock implementation of the session use case for testing.
type mockSessionUseCase struct {
	mock.Mock
}

func (m *mockSessionUseCase) Resolve(
	ctx context.Context,
	token string,
) (*sessionDomain.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sessionDomain.Session), args.Error(1)
}

func (m *mockSessionUseCase) Revoke(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

// mockRateLimitUseCase is a mock implementation of the rate limit use case for testing.
type mockRateLimitUseCase struct {
	mock.Mock
}

func (m *mockRateLimitUseCase) Admit(
	ctx context.Context,
	user *userDomain.User,
	endpoint string,
) (*rateLimitDomain.Result, error) {
	args := m.Called(ctx, user, endpoint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rateLimitDomain.Result), args.Error(1)
}

func (m *mockRateLimitUseCase) CleanupExpired(
	ctx context.Context,
	retention time.Duration,
) (int64, error) {
	args := m.Called(ctx, retention)
	return args.Get(0).(int64), args.Error(1)
}

// mockWebhookUseCase is a mock implementation of the webhook use case for testing.
type mockWebhookUseCase struct {
	mock.Mock
}

func (m *mockWebhookUseCase) Process(ctx context.Context, body []byte, signatureHex string) error {
	args := m.Called(ctx, body, signatureHex)
	return args.Error(0)
}

// testConfig returns a configuration suitable for router tests.
func testConfig() *config.Config {
	return &config.Config{
		ServerHost:            "localhost",
		ServerPort:            0,
		SessionCookieName:     "session_token",
		RateLimitTokenEnabled: false,
		MetricsNamespace:      "test_app",
	}
}

// createTestServer creates a test server with a discarding logger and mocked
// use cases.
func createTestServer(
	authUC *mockAuthUseCase,
	sessionUC *mockSessionUseCase,
	rateLimitUC *mockRateLimitUseCase,
	webhookUC *mockWebhookUseCase,
) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(testConfig(), nil, logger, authUC, sessionUC, rateLimitUC, webhookUC, nil)
}

// TestHealthHandler tests the health check endpoint handler.
func TestHealthHandler(t *testing.T) {
	server := createTestServer(nil, nil, nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	server.healthHandler(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "healthy", response["status"])
}

// TestReadinessHandler_NotReady_NilDB tests the readiness endpoint when DB is nil.
func TestReadinessHandler_NotReady_NilDB(t *testing.T) {
	server := createTestServer(nil, nil, nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)

	server.readinessHandler(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "not_ready", response["status"])

	components, ok := response["components"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "error", components["database"])
}

// TestCustomLoggerMiddleware tests the custom logging middleware.
func TestCustomLoggerMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := gin.New()
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(logger))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "test"})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "test", response["message"])
}

// TestRequestIDMiddleware_HeaderPresent verifies X-Request-Id header is present in response.
func TestRequestIDMiddleware_HeaderPresent(t *testing.T) {
	router := gin.New()
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "test"})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	requestID := w.Header().Get("X-Request-Id")
	assert.NotEmpty(t, requestID, "X-Request-Id header should be present")

	parsedUUID, err := uuid.Parse(requestID)
	require.NoError(t, err, "X-Request-Id should be a valid UUID")
	assert.NotEqual(t, uuid.Nil, parsedUUID, "X-Request-Id should not be nil UUID")
}

// TestSetupRouter exercises the full route wiring with mocked use cases.
func TestSetupRouter(t *testing.T) {
	t.Run("health endpoint", func(t *testing.T) {
		server := createTestServer(
			&mockAuthUseCase{}, &mockSessionUseCase{}, &mockRateLimitUseCase{}, &mockWebhookUseCase{},
		)
		router := server.SetupRouter()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown path returns json 404", func(t *testing.T) {
		server := createTestServer(
			&mockAuthUseCase{}, &mockSessionUseCase{}, &mockRateLimitUseCase{}, &mockWebhookUseCase{},
		)
		router := server.SetupRouter()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "not_found")
	})

	t.Run("auth pass-through without provider returns 502", func(t *testing.T) {
		server := createTestServer(
			&mockAuthUseCase{}, &mockSessionUseCase{}, &mockRateLimitUseCase{}, &mockWebhookUseCase{},
		)
		router := server.SetupRouter()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/auth/callback", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), "bad_gateway")
	})

	t.Run("landing page for anonymous visitor", func(t *testing.T) {
		authUC := &mockAuthUseCase{}
		authUC.On("AuthenticateSession", mock.Anything, "").
			Return(authDomain.Anonymous(), nil).Once()

		server := createTestServer(
			authUC, &mockSessionUseCase{}, &mockRateLimitUseCase{}, &mockWebhookUseCase{},
		)
		router := server.SetupRouter()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "/signin")
		authUC.AssertExpectations(t)
	})

	t.Run("token issuance requires a session", func(t *testing.T) {
		authUC := &mockAuthUseCase{}
		authUC.On("AuthenticateSession", mock.Anything, "").
			Return(authDomain.Anonymous(), nil).Once()

		server := createTestServer(
			authUC, &mockSessionUseCase{}, &mockRateLimitUseCase{}, &mockWebhookUseCase{},
		)
		router := server.SetupRouter()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/token", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("protected api rejects anonymous callers without counting quota", func(t *testing.T) {
		authUC := &mockAuthUseCase{}
		authUC.On("AuthenticateSession", mock.Anything, "").
			Return(authDomain.Anonymous(), nil).Once()
		rateLimitUC := &mockRateLimitUseCase{}

		server := createTestServer(
			authUC, &mockSessionUseCase{}, rateLimitUC, &mockWebhookUseCase{},
		)
		router := server.SetupRouter()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		rateLimitUC.AssertNotCalled(t, "Admit")
	})

	t.Run("protected api admits bearer callers with quota headers", func(t *testing.T) {
		user := &userDomain.User{ID: uuid.Must(uuid.NewV7()), Email: "user@example.com"}
		principal := &authDomain.Principal{Kind: authDomain.PrincipalBearer, User: user}

		authUC := &mockAuthUseCase{}
		authUC.On("AuthenticateBearer", mock.Anything, "some-token").
			Return(principal, nil).Once()

		rateLimitUC := &mockRateLimitUseCase{}
		rateLimitUC.On("Admit", mock.Anything, user, "/api/v1/me").
			Return(&rateLimitDomain.Result{
				Allowed:   true,
				Limit:     100,
				Remaining: 99,
				Window:    time.Hour,
				ResetAt:   time.Now().Add(time.Hour),
			}, nil).Once()

		server := createTestServer(
			authUC, &mockSessionUseCase{}, rateLimitUC, &mockWebhookUseCase{},
		)
		router := server.SetupRouter()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		req.Header.Set("Authorization", "Bearer some-token")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "100", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "99", w.Header().Get("X-RateLimit-Remaining"))
		authUC.AssertExpectations(t)
		rateLimitUC.AssertExpectations(t)
	})

	t.Run("webhook endpoint skips authentication", func(t *testing.T) {
		webhookUC := &mockWebhookUseCase{}
		webhookUC.On("Process", mock.Anything, mock.Anything, "deadbeef").
			Return(nil).Once()

		server := createTestServer(
			&mockAuthUseCase{}, &mockSessionUseCase{}, &mockRateLimitUseCase{}, webhookUC,
		)
		router := server.SetupRouter()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
		req.Header.Set("x-signature", "deadbeef")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		webhookUC.AssertExpectations(t)
	})
}

// TestServer_ShutdownGracefully tests graceful server shutdown.
func TestServer_ShutdownGracefully(t *testing.T) {
	server := createTestServer(
		&mockAuthUseCase{}, &mockSessionUseCase{}, &mockRateLimitUseCase{}, &mockWebhookUseCase{},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	// Give server time to start
	time.Sleep(100 * time.Millisecond)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	err := server.Shutdown(shutdownCtx)
	assert.NoError(t, err)

	select {
	case err := <-errChan:
		t.Fatalf("server startup failed: %v", err)
	default:
	}
}

// TestMetricsServer_Endpoints tests the metrics server endpoints.
func TestMetricsServer_Endpoints(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	provider, err := metrics.NewProvider("test_app")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	metricsServer := NewMetricsServer("localhost", 8081, logger, provider)
	require.NotNil(t, metricsServer)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	metricsServer.GetHandler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
}

// TestMainServer_NoMetricsEndpoint tests that the main server does NOT expose /metrics.
func TestMainServer_NoMetricsEndpoint(t *testing.T) {
	server := createTestServer(
		&mockAuthUseCase{}, &mockSessionUseCase{}, &mockRateLimitUseCase{}, &mockWebhookUseCase{},
	)
	router := server.SetupRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
