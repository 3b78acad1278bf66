// Package repository provides data persistence for rate limit counters.
//
// The window increment is a single conditional upsert so concurrent requests
// never lose updates: two requests arriving together both land their
// increment, and the returned count reflects every request admitted so far in
// the window.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/gatekeeper/internal/database"
	apperrors "github.com/allisson/gatekeeper/internal/errors"
	"github.com/allisson/gatekeeper/internal/ratelimit/domain"
)

// PostgreSQLRateLimitRepository handles rate limit persistence for PostgreSQL.
type PostgreSQLRateLimitRepository struct {
	db *sql.DB
}

// NewPostgreSQLRateLimitRepository creates a new PostgreSQLRateLimitRepository.
func NewPostgreSQLRateLimitRepository(db *sql.DB) *PostgreSQLRateLimitRepository {
	return &PostgreSQLRateLimitRepository{db: db}
}

// Increment counts one request against the user's window for the endpoint and
// returns the resulting counter state.
//
// A single upsert covers all three cases atomically: first request ever
// (insert), first request of a new window (counter reset to 1), and request
// within the live window (counter incremented). The counter keeps counting
// past the limit; the caller decides admission by comparing Count against the
// tier limit, so this layer needs no knowledge of tiers.
func (r *PostgreSQLRateLimitRepository) Increment(
	ctx context.Context,
	userID uuid.UUID,
	endpoint string,
	window time.Duration,
	now time.Time,
) (*domain.Record, error) {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO rate_limits (id, user_id, endpoint, count, reset_at, created_at, updated_at)
			  VALUES ($1, $2, $3, 1, $4, $5, $5)
			  ON CONFLICT (user_id, endpoint) DO UPDATE SET
				  count = CASE WHEN rate_limits.reset_at <= $5 THEN 1 ELSE rate_limits.count + 1 END,
				  reset_at = CASE WHEN rate_limits.reset_at <= $5 THEN $4 ELSE rate_limits.reset_at END,
				  updated_at = $5
			  RETURNING id, count, reset_at`

	record := domain.Record{
		UserID:   userID,
		Endpoint: endpoint,
	}

	err := querier.QueryRowContext(
		ctx,
		query,
		uuid.Must(uuid.NewV7()),
		userID,
		endpoint,
		now.Add(window),
		now,
	).Scan(&record.ID, &record.Count, &record.ResetAt)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to increment rate limit")
	}

	record.ResetAt = record.ResetAt.UTC()
	return &record, nil
}

// Get retrieves the counter for a user and endpoint, mainly for diagnostics.
func (r *PostgreSQLRateLimitRepository) Get(
	ctx context.Context,
	userID uuid.UUID,
	endpoint string,
) (*domain.Record, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, user_id, endpoint, count, reset_at, created_at, updated_at
			  FROM rate_limits WHERE user_id = $1 AND endpoint = $2`

	return scanRecord(querier.QueryRowContext(ctx, query, userID, endpoint))
}

// DeleteExpired removes counters whose window ended before the cutoff.
// Intended for periodic cleanup; admission never depends on it.
func (r *PostgreSQLRateLimitRepository) DeleteExpired(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM rate_limits WHERE reset_at < $1`

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

// scanRecord scans a single rate limit row, mapping sql.ErrNoRows to
// ErrRecordNotFound.
func scanRecord(row *sql.Row) (*domain.Record, error) {
	var record domain.Record

	err := row.Scan(
		&record.ID,
		&record.UserID,
		&record.Endpoint,
		&record.Count,
		&record.ResetAt,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get rate limit")
	}

	record.ResetAt = record.ResetAt.UTC()
	return &record, nil
}
