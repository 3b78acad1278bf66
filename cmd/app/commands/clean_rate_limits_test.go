package commands

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	rateLimitDomain "github.com/allisson/gatekeeper/internal/ratelimit/domain"
	userDomain "github.com/allisson/gatekeeper/internal/user/domain"
)

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

func TestRunCleanRateLimits(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes expired counters", func(t *testing.T) {
		useCase := &mockRateLimitUseCase{}
		useCase.On("CleanupExpired", ctx, 7*24*time.Hour).Return(int64(42), nil).Once()

		var buf bytes.Buffer
		err := RunCleanRateLimits(ctx, useCase, testCommandLogger(), &buf, 7, "text")

		require.NoError(t, err)
		assert.Contains(t, buf.String(), "42")
		useCase.AssertExpectations(t)
	})

	t.Run("json output", func(t *testing.T) {
		useCase := &mockRateLimitUseCase{}
		useCase.On("CleanupExpired", ctx, 24*time.Hour).Return(int64(0), nil).Once()

		var buf bytes.Buffer
		err := RunCleanRateLimits(ctx, useCase, testCommandLogger(), &buf, 1, "json")

		require.NoError(t, err)
		assert.Contains(t, buf.String(), `"count"`)
	})

	t.Run("negative days", func(t *testing.T) {
		useCase := &mockRateLimitUseCase{}

		var buf bytes.Buffer
		err := RunCleanRateLimits(ctx, useCase, testCommandLogger(), &buf, -1, "text")

		require.Error(t, err)
		useCase.AssertNotCalled(t, "CleanupExpired")
	})

	t.Run("repository failure", func(t *testing.T) {
		useCase := &mockRateLimitUseCase{}
		useCase.On("CleanupExpired", ctx, mock.Anything).
			Return(int64(0), assert.AnError).Once()

		var buf bytes.Buffer
		err := RunCleanRateLimits(ctx, useCase, testCommandLogger(), &buf, 7, "text")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to clean rate limit counters")
	})
}
