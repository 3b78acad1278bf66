package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/gatekeeper/internal/errors"
	"github.com/allisson/gatekeeper/internal/ratelimit/domain"
)

func recordColumns() []string {
	return []string{"id", "user_id", "endpoint", "count", "reset_at", "created_at", "updated_at"}
}

func TestPostgreSQLRateLimitRepository_Increment(t *testing.T) {
	ctx := context.Background()

	t.Run("first request opens a window", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewPostgreSQLRateLimitRepository(db)
		userID := uuid.Must(uuid.NewV7())
		now := time.Now().UTC()
		resetAt := now.Add(time.Hour)
		recordID := uuid.Must(uuid.NewV7())

		mock.ExpectQuery("INSERT INTO rate_limits").
			WithArgs(sqlmock.AnyArg(), userID, "/api/v1/hello", resetAt, now).
			WillReturnRows(sqlmock.NewRows([]string{"id", "count", "reset_at"}).
				AddRow(recordID, 1, resetAt))

		record, err := repo.Increment(ctx, userID, "/api/v1/hello", time.Hour, now)
		require.NoError(t, err)

		assert.Equal(t, 1, record.Count)
		assert.Equal(t, userID, record.UserID)
		assert.Equal(t, "/api/v1/hello", record.Endpoint)
		assert.True(t, record.ResetAt.Equal(resetAt))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("subsequent request returns the incremented count", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewPostgreSQLRateLimitRepository(db)
		userID := uuid.Must(uuid.NewV7())
		now := time.Now().UTC()
		resetAt := now.Add(30 * time.Minute)

		mock.ExpectQuery("INSERT INTO rate_limits").
			WillReturnRows(sqlmock.NewRows([]string{"id", "count", "reset_at"}).
				AddRow(uuid.Must(uuid.NewV7()), 42, resetAt))

		record, err := repo.Increment(ctx, userID, "/api/v1/hello", time.Hour, now)
		require.NoError(t, err)

		assert.Equal(t, 42, record.Count)
		assert.True(t, record.ResetAt.Equal(resetAt))
	})

	t.Run("database failure is wrapped", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewPostgreSQLRateLimitRepository(db)

		mock.ExpectQuery("INSERT INTO rate_limits").
			WillReturnError(apperrors.New("connection reset"))

		_, err = repo.Increment(ctx, uuid.Must(uuid.NewV7()), "/api/v1/hello", time.Hour, time.Now().UTC())
		assert.Error(t, err)
	})
}

func TestPostgreSQLRateLimitRepository_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("existing record", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewPostgreSQLRateLimitRepository(db)
		userID := uuid.Must(uuid.NewV7())
		recordID := uuid.Must(uuid.NewV7())
		now := time.Now().UTC()

		mock.ExpectQuery("SELECT id, user_id, endpoint, count, reset_at").
			WithArgs(userID, "/api/v1/hello").
			WillReturnRows(sqlmock.NewRows(recordColumns()).
				AddRow(recordID, userID, "/api/v1/hello", 7, now.Add(time.Hour), now, now))

		record, err := repo.Get(ctx, userID, "/api/v1/hello")
		require.NoError(t, err)

		assert.Equal(t, recordID, record.ID)
		assert.Equal(t, 7, record.Count)
	})

	t.Run("missing record", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewPostgreSQLRateLimitRepository(db)

		mock.ExpectQuery("SELECT id, user_id, endpoint, count, reset_at").
			WillReturnRows(sqlmock.NewRows(recordColumns()))

		_, err = repo.Get(ctx, uuid.Must(uuid.NewV7()), "/api/v1/hello")
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	})
}

func TestPostgreSQLRateLimitRepository_DeleteExpired(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgreSQLRateLimitRepository(db)
	cutoff := time.Now().UTC()

	mock.ExpectExec("DELETE FROM rate_limits").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	deleted, err := repo.DeleteExpired(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLRateLimitRepository_Increment(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewMySQLRateLimitRepository(db)
	userID := uuid.Must(uuid.NewV7())
	recordID := uuid.Must(uuid.NewV7())
	now := time.Now().UTC()
	resetAt := now.Add(time.Hour)

	mock.ExpectExec("INSERT INTO rate_limits").
		WithArgs(sqlmock.AnyArg(), userID, "/api/v1/hello", resetAt, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id, user_id, endpoint, count, reset_at").
		WithArgs(userID, "/api/v1/hello").
		WillReturnRows(sqlmock.NewRows(recordColumns()).
			AddRow(recordID, userID, "/api/v1/hello", 1, resetAt, now, now))

	record, err := repo.Increment(context.Background(), userID, "/api/v1/hello", time.Hour, now)
	require.NoError(t, err)

	assert.Equal(t, 1, record.Count)
	assert.True(t, record.ResetAt.Equal(resetAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}
