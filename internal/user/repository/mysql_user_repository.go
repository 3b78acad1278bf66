package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/gatekeeper/internal/database"
	apperrors "github.com/allisson/gatekeeper/internal/errors"
	"github.com/allisson/gatekeeper/internal/user/domain"
)

// MySQLUserRepository handles user persistence for MySQL.
// Uses CHAR(36) UUID columns and ? placeholders; otherwise mirrors the
// PostgreSQL implementation.
type MySQLUserRepository struct {
	db *sql.DB
}

// NewMySQLUserRepository creates a new MySQLUserRepository.
func NewMySQLUserRepository(db *sql.DB) *MySQLUserRepository {
	return &MySQLUserRepository{db: db}
}

// Create inserts a new user.
func (r *MySQLUserRepository) Create(ctx context.Context, user *domain.User) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO users (id, email, subscription_id, last_key_generated_at, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		user.ID,
		user.Email,
		user.SubscriptionID,
		user.LastKeyGeneratedAt,
		user.CreatedAt,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrUserAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create user")
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *MySQLUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, email, subscription_id, last_key_generated_at, created_at, updated_at
			  FROM users WHERE id = ?`

	return scanUser(querier.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a user by email.
func (r *MySQLUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, email, subscription_id, last_key_generated_at, created_at, updated_at
			  FROM users WHERE email = ?`

	return scanUser(querier.QueryRowContext(ctx, query, email))
}

// EnsureFreshness establishes the user's freshness timestamp if it is still
// unset, then returns the stored value. See the PostgreSQL implementation for
// the concurrency contract.
func (r *MySQLUserRepository) EnsureFreshness(
	ctx context.Context,
	id uuid.UUID,
	now time.Time,
) (time.Time, error) {
	querier := database.GetTx(ctx, r.db)

	update := `UPDATE users SET last_key_generated_at = ?, updated_at = ?
			   WHERE id = ? AND last_key_generated_at IS NULL`

	if _, err := querier.ExecContext(ctx, update, now, now, id); err != nil {
		return time.Time{}, apperrors.Wrap(err, "failed to ensure freshness")
	}

	var stored sql.NullTime
	query := `SELECT last_key_generated_at FROM users WHERE id = ?`
	if err := querier.QueryRowContext(ctx, query, id).Scan(&stored); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, domain.ErrUserNotFound
		}
		return time.Time{}, apperrors.Wrap(err, "failed to read freshness")
	}
	if !stored.Valid {
		return time.Time{}, apperrors.New("freshness not established after ensure")
	}

	return stored.Time.UTC(), nil
}

// RotateFreshness unconditionally sets a new freshness timestamp.
func (r *MySQLUserRepository) RotateFreshness(
	ctx context.Context,
	id uuid.UUID,
	now time.Time,
) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE users SET last_key_generated_at = ?, updated_at = ? WHERE id = ?`

	result, err := querier.ExecContext(ctx, query, now, now, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to rotate freshness")
	}
	return requireRowAffected(result)
}

// SetSubscription sets or clears the user's subscription marker.
func (r *MySQLUserRepository) SetSubscription(
	ctx context.Context,
	id uuid.UUID,
	subscriptionID *string,
) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE users SET subscription_id = ?, updated_at = NOW() WHERE id = ?`

	// MySQL reports zero affected rows when the new values equal the old ones
	// (e.g. a replayed webhook), so the existence check is left to callers.
	_, err := querier.ExecContext(ctx, query, subscriptionID, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to set subscription")
	}
	return nil
}
