package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/gatekeeper/internal/database"
	apperrors "github.com/allisson/gatekeeper/internal/errors"
	"github.com/allisson/gatekeeper/internal/ratelimit/domain"
)

// MySQLRateLimitRepository handles rate limit persistence for MySQL.
type MySQLRateLimitRepository struct {
	db *sql.DB
}

// NewMySQLRateLimitRepository creates a new MySQLRateLimitRepository.
func NewMySQLRateLimitRepository(db *sql.DB) *MySQLRateLimitRepository {
	return &MySQLRateLimitRepository{db: db}
}

// Increment counts one request against the user's window for the endpoint and
// returns the resulting counter state.
//
// The upsert itself is atomic; MySQL has no RETURNING, so the counter is read
// back with a follow-up SELECT. That read may observe increments from requests
// that landed in between, which only makes the admission decision stricter,
// never looser.
//
// The IF() assignments are order-sensitive: count must be assigned first,
// while reset_at still holds the pre-update value.
func (r *MySQLRateLimitRepository) Increment(
	ctx context.Context,
	userID uuid.UUID,
	endpoint string,
	window time.Duration,
	now time.Time,
) (*domain.Record, error) {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO rate_limits (id, user_id, endpoint, count, reset_at, created_at, updated_at)
			  VALUES (?, ?, ?, 1, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE
				  count = IF(reset_at <= VALUES(updated_at), 1, count + 1),
				  reset_at = IF(reset_at <= VALUES(updated_at), VALUES(reset_at), reset_at),
				  updated_at = VALUES(updated_at)`

	_, err := querier.ExecContext(
		ctx,
		query,
		uuid.Must(uuid.NewV7()),
		userID,
		endpoint,
		now.Add(window),
		now,
		now,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to increment rate limit")
	}

	return r.Get(ctx, userID, endpoint)
}

// Get retrieves the counter for a user and endpoint.
func (r *MySQLRateLimitRepository) Get(
	ctx context.Context,
	userID uuid.UUID,
	endpoint string,
) (*domain.Record, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, user_id, endpoint, count, reset_at, created_at, updated_at
			  FROM rate_limits WHERE user_id = ? AND endpoint = ?`

	return scanRecord(querier.QueryRowContext(ctx, query, userID, endpoint))
}

// DeleteExpired removes counters whose window ended before the cutoff.
func (r *MySQLRateLimitRepository) DeleteExpired(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM rate_limits WHERE reset_at < ?`

	result, err := querier.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete expired rate limits")
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to read affected rows")
	}
	return deleted, nil
}
