package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	authDomain "github.com/allisson/gatekeeper/internal/auth/domain"
	apperrors "github.com/allisson/gatekeeper/internal/errors"
)

func newLandingRouter(useCase *mockAuthUseCase, principal *authDomain.Principal) *gin.Engine {
	handler := NewLandingHandler(useCase, newTestLogger())

	router := gin.New()
	router.Use(injectPrincipal(principal))
	router.GET("/", handler.IndexHandler)
	return router
}

func TestLandingHandler_IndexHandler(t *testing.T) {
	t.Run("anonymous visitor sees the sign-in link", func(t *testing.T) {
		useCase := &mockAuthUseCase{}

		router := newLandingRouter(useCase, authDomain.Anonymous())

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "/signin")
		assert.NotContains(t, recorder.Body.String(), "Your API key")
		useCase.AssertNotCalled(t, "CurrentToken")
	})

	t.Run("signed-in user sees their current key", func(t *testing.T) {
		principal := sessionPrincipal()

		useCase := &mockAuthUseCase{}
		useCase.On("CurrentToken", principal.User).Return("the-api-key", nil).Once()

		router := newLandingRouter(useCase, principal)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "user@example.com")
		assert.Contains(t, recorder.Body.String(), "the-api-key")
		useCase.AssertExpectations(t)
	})

	t.Run("signed-in user without a key is prompted to issue one", func(t *testing.T) {
		principal := sessionPrincipal()

		useCase := &mockAuthUseCase{}
		useCase.On("CurrentToken", principal.User).Return("", nil).Once()

		router := newLandingRouter(useCase, principal)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "No API key issued yet")
	})

	t.Run("token derivation failure is mapped", func(t *testing.T) {
		principal := sessionPrincipal()

		useCase := &mockAuthUseCase{}
		useCase.On("CurrentToken", principal.User).
			Return("", apperrors.New("boom")).
			Once()

		router := newLandingRouter(useCase, principal)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	})
}
