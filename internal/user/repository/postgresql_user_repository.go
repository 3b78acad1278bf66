// Package repository provides data persistence implementations for user entities.
//
// Provides PostgreSQL and MySQL implementations with transaction support via
// database.GetTx(). Freshness writes are expressed as conditional UPDATEs so
// concurrent first-authentications stay idempotent-safe.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/gatekeeper/internal/database"
	apperrors "github.com/allisson/gatekeeper/internal/errors"
	"github.com/allisson/gatekeeper/internal/user/domain"
)

// PostgreSQLUserRepository handles user persistence for PostgreSQL.
type PostgreSQLUserRepository struct {
	db *sql.DB
}

// NewPostgreSQLUserRepository creates a new PostgreSQLUserRepository.
func NewPostgreSQLUserRepository(db *sql.DB) *PostgreSQLUserRepository {
	return &PostgreSQLUserRepository{db: db}
}

// Create inserts a new user.
func (r *PostgreSQLUserRepository) Create(ctx context.Context, user *domain.User) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO users (id, email, subscription_id, last_key_generated_at, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $5)`

	_, err := querier.ExecContext(
		ctx,
		query,
		user.ID,
		user.Email,
		user.SubscriptionID,
		user.LastKeyGeneratedAt,
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
func (r *PostgreSQLUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, email, subscription_id, last_key_generated_at, created_at, updated_at
			  FROM users WHERE id = $1`

	return scanUser(querier.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a user by email.
func (r *PostgreSQLUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, email, subscription_id, last_key_generated_at, created_at, updated_at
			  FROM users WHERE email = $1`

	return scanUser(querier.QueryRowContext(ctx, query, email))
}

// EnsureFreshness establishes the user's freshness timestamp if it is still
// unset, then returns the stored value. The NULL-guarded UPDATE makes
// concurrent first-authentications converge on a single winning value without
// locking: whichever write lands first is the one every caller reads back.
func (r *PostgreSQLUserRepository) EnsureFreshness(
	ctx context.Context,
	id uuid.UUID,
	now time.Time,
) (time.Time, error) {
	querier := database.GetTx(ctx, r.db)

	update := `UPDATE users SET last_key_generated_at = $1, updated_at = $1
			   WHERE id = $2 AND last_key_generated_at IS NULL`

	if _, err := querier.ExecContext(ctx, update, now, id); err != nil {
		return time.Time{}, apperrors.Wrap(err, "failed to ensure freshness")
	}

	var stored sql.NullTime
	query := `SELECT last_key_generated_at FROM users WHERE id = $1`
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

// RotateFreshness unconditionally sets a new freshness timestamp, invalidating
// every previously issued token for the user.
func (r *PostgreSQLUserRepository) RotateFreshness(
	ctx context.Context,
	id uuid.UUID,
	now time.Time,
) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE users SET last_key_generated_at = $1, updated_at = $1 WHERE id = $2`

	result, err := querier.ExecContext(ctx, query, now, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to rotate freshness")
	}
	return requireRowAffected(result)
}

// SetSubscription sets or clears the user's subscription marker.
func (r *PostgreSQLUserRepository) SetSubscription(
	ctx context.Context,
	id uuid.UUID,
	subscriptionID *string,
) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE users SET subscription_id = $1, updated_at = NOW() WHERE id = $2`

	result, err := querier.ExecContext(ctx, query, subscriptionID, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to set subscription")
	}
	return requireRowAffected(result)
}

// scanUser scans a single user row, mapping sql.ErrNoRows to ErrUserNotFound.
func scanUser(row *sql.Row) (*domain.User, error) {
	var user domain.User
	var subscriptionID sql.NullString
	var lastKeyGeneratedAt sql.NullTime

	err := row.Scan(
		&user.ID,
		&user.Email,
		&subscriptionID,
		&lastKeyGeneratedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get user")
	}

	if subscriptionID.Valid {
		user.SubscriptionID = &subscriptionID.String
	}
	if lastKeyGeneratedAt.Valid {
		t := lastKeyGeneratedAt.Time.UTC()
		user.LastKeyGeneratedAt = &t
	}

	return &user, nil
}

// requireRowAffected maps zero affected rows to ErrUserNotFound.
func requireRowAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// isUniqueViolation checks if the error is a unique constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate key") ||
		strings.Contains(errMsg, "unique constraint") ||
		strings.Contains(errMsg, "duplicate entry")
}
