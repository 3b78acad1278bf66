package commands

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authDomain "github.com/allisson/gatekeeper/internal/auth/domain"
	userDomain "github.com/allisson/gatekeeper/internal/user/domain"
)

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

func TestRunIssueKey(t *testing.T) {
	ctx := context.Background()

	t.Run("issues a key for a known user", func(t *testing.T) {
		user := &userDomain.User{ID: uuid.Must(uuid.NewV7()), Email: "user@example.com"}

		userUC := &mockUserUseCase{}
		userUC.On("GetByEmail", ctx, "user@example.com").Return(user, nil).Once()

		authUC := &mockAuthUseCase{}
		authUC.On("IssueToken", ctx, user.ID).
			Return(&authDomain.IssueTokenOutput{
				Token:       "sealed-token",
				GeneratedAt: time.Now().UTC(),
			}, nil).Once()

		var buf bytes.Buffer
		err := RunIssueKey(ctx, userUC, authUC, testCommandLogger(), &buf, "user@example.com", "text")

		require.NoError(t, err)
		assert.Contains(t, buf.String(), "sealed-token")
		userUC.AssertExpectations(t)
		authUC.AssertExpectations(t)
	})

	t.Run("unknown user", func(t *testing.T) {
		userUC := &mockUserUseCase{}
		userUC.On("GetByEmail", ctx, "ghost@example.com").
			Return(nil, userDomain.ErrUserNotFound).Once()

		authUC := &mockAuthUseCase{}

		var buf bytes.Buffer
		err := RunIssueKey(ctx, userUC, authUC, testCommandLogger(), &buf, "ghost@example.com", "text")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to find user")
		authUC.AssertNotCalled(t, "IssueToken")
	})

	t.Run("json output", func(t *testing.T) {
		user := &userDomain.User{ID: uuid.Must(uuid.NewV7()), Email: "user@example.com"}

		userUC := &mockUserUseCase{}
		userUC.On("GetByEmail", ctx, "user@example.com").Return(user, nil).Once()

		authUC := &mockAuthUseCase{}
		authUC.On("IssueToken", ctx, user.ID).
			Return(&authDomain.IssueTokenOutput{
				Token:       "sealed-token",
				GeneratedAt: time.Now().UTC(),
			}, nil).Once()

		var buf bytes.Buffer
		err := RunIssueKey(ctx, userUC, authUC, testCommandLogger(), &buf, "user@example.com", "json")

		require.NoError(t, err)
		assert.Contains(t, buf.String(), `"key"`)
		assert.Contains(t, buf.String(), "sealed-token")
	})
}
