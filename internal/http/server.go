// Package http provides the HTTP server and route wiring for the access gate.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	apiHTTP "github.com/allisson/gatekeeper/internal/api/http"
	authHTTP "github.com/allisson/gatekeeper/internal/auth/http"
	authUsecase "github.com/allisson/gatekeeper/internal/auth/usecase"
	billingHTTP "github.com/allisson/gatekeeper/internal/billing/http"
	billingUsecase "github.com/allisson/gatekeeper/internal/billing/usecase"
	"github.com/allisson/gatekeeper/internal/config"
	apperrors "github.com/allisson/gatekeeper/internal/errors"
	"github.com/allisson/gatekeeper/internal/httputil"
	"github.com/allisson/gatekeeper/internal/metrics"
	rateLimitHTTP "github.com/allisson/gatekeeper/internal/ratelimit/http"
	rateLimitUsecase "github.com/allisson/gatekeeper/internal/ratelimit/usecase"
	sessionUsecase "github.com/allisson/gatekeeper/internal/session/usecase"
)

// Server represents the main HTTP server.
type Server struct {
	config *config.Config
	db     *sql.DB
	logger *slog.Logger
	router *gin.Engine
	server *http.Server

	authUseCase      authUsecase.AuthUseCase
	sessionUseCase   sessionUsecase.UseCase
	rateLimitUseCase rateLimitUsecase.RateLimitUseCase
	webhookUseCase   billingUsecase.WebhookUseCase

	// meterProvider is nil when metrics are disabled.
	meterProvider metric.MeterProvider
}

// NewServer creates a new HTTP server.
func NewServer(
	cfg *config.Config,
	db *sql.DB,
	logger *slog.Logger,
	authUseCase authUsecase.AuthUseCase,
	sessionUseCase sessionUsecase.UseCase,
	rateLimitUseCase rateLimitUsecase.RateLimitUseCase,
	webhookUseCase billingUsecase.WebhookUseCase,
	meterProvider metric.MeterProvider,
) *Server {
	return &Server{
		config:           cfg,
		db:               db,
		logger:           logger,
		authUseCase:      authUseCase,
		sessionUseCase:   sessionUseCase,
		rateLimitUseCase: rateLimitUseCase,
		webhookUseCase:   webhookUseCase,
		meterProvider:    meterProvider,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetupRouter builds the Gin engine with all middleware and routes.
func (s *Server) SetupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(
		s.config.CORSEnabled,
		s.config.CORSAllowOrigins,
		s.logger,
	); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if s.meterProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(s.meterProvider, s.config.MetricsNamespace))
	}

	// Probes
	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	authMiddleware := authHTTP.AuthenticationMiddleware(
		s.authUseCase,
		s.config.SessionCookieName,
		s.logger,
	)

	landingHandler := authHTTP.NewLandingHandler(s.authUseCase, s.logger)
	sessionHandler := authHTTP.NewSessionHandler(s.sessionUseCase, s.config, s.logger)
	tokenHandler := authHTTP.NewTokenHandler(s.authUseCase, s.logger)
	apiHandler := apiHTTP.NewAPIHandler(s.logger)
	webhookHandler := billingHTTP.NewWebhookHandler(s.webhookUseCase, s.logger)

	// Public surface
	router.GET("/", authMiddleware, landingHandler.IndexHandler)
	router.GET("/signin", sessionHandler.SignInHandler)
	router.GET("/signout", sessionHandler.SignOutHandler)

	// Token issuance. Per-IP throttling runs before authentication so
	// unauthenticated floods never reach the database.
	tokenChain := make([]gin.HandlerFunc, 0, 3)
	if s.config.RateLimitTokenEnabled {
		tokenChain = append(tokenChain, authHTTP.TokenRateLimitMiddleware(
			s.config.RateLimitTokenRequestsPerSec,
			s.config.RateLimitTokenBurst,
			s.logger,
		))
	}
	tokenChain = append(tokenChain, authMiddleware, tokenHandler.IssueHandler)
	router.POST("/auth/token", tokenChain...)

	// Everything else under /auth/ belongs to the session provider. Gin's
	// router cannot mix a catch-all with the static /auth/token route, so the
	// pass-through is mounted on the no-route fallback instead.
	router.NoRoute(s.authPassThroughHandler(sessionHandler))

	// Protected API. The quota middleware resolves the principal, so it must
	// run after authentication.
	apiGroup := router.Group("/api/v1")
	apiGroup.Use(authMiddleware)
	apiGroup.Use(rateLimitHTTP.RateLimitMiddleware(s.rateLimitUseCase, s.logger))
	apiGroup.GET("/me", authHTTP.RequireAuthenticated(s.logger), apiHandler.MeHandler)
	apiGroup.GET("/hello", authHTTP.RequireSubscription(s.logger), apiHandler.HelloHandler)

	// Billing webhook, authenticated by signature only
	router.POST("/webhook", webhookHandler.ReceiveHandler)

	return router
}

// authPassThroughHandler forwards unmatched /auth/* requests to the session
// provider and returns a JSON 404 for everything else.
func (s *Server) authPassThroughHandler(sessionHandler *authHTTP.SessionHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/auth/") {
			sessionHandler.ProxyHandler(c)
			return
		}
		httputil.HandleErrorGin(c, apperrors.ErrNotFound, s.logger)
	}
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the server can serve traffic, checking
// each dependency individually.
func (s *Server) readinessHandler(c *gin.Context) {
	components := gin.H{}
	ready := true

	if s.db == nil {
		components["database"] = "error"
		ready = false
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := s.db.PingContext(ctx); err != nil {
			s.logger.Warn("database ping failed", slog.Any("error", err))
			components["database"] = "error"
			ready = false
		} else {
			components["database"] = "ok"
		}
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": components,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": components,
	})
}

// GetHandler returns the HTTP handler, building the router on first use.
func (s *Server) GetHandler() http.Handler {
	if s.router == nil {
		s.router = s.SetupRouter()
	}
	return s.router
}

// Start starts the HTTP server. It blocks until the server stops.
func (s *Server) Start(ctx context.Context) error {
	s.server.Handler = s.GetHandler()

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
