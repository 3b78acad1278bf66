// Package repository provides read-side persistence for provider-managed sessions.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/allisson/gatekeeper/internal/database"
	apperrors "github.com/allisson/gatekeeper/internal/errors"
	"github.com/allisson/gatekeeper/internal/session/domain"
)

// PostgreSQLSessionRepository handles session reads for PostgreSQL.
type PostgreSQLSessionRepository struct {
	db *sql.DB
}

// NewPostgreSQLSessionRepository creates a new PostgreSQLSessionRepository.
func NewPostgreSQLSessionRepository(db *sql.DB) *PostgreSQLSessionRepository {
	return &PostgreSQLSessionRepository{db: db}
}

// GetByToken retrieves a session by its opaque token.
func (r *PostgreSQLSessionRepository) GetByToken(
	ctx context.Context,
	token string,
) (*domain.Session, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT token, user_id, expires_at, created_at FROM sessions WHERE token = $1`

	var session domain.Session
	err := querier.QueryRowContext(ctx, query, token).Scan(
		&session.Token,
		&session.UserID,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get session")
	}

	return &session, nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (r *PostgreSQLSessionRepository) Delete(ctx context.Context, token string) error {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM sessions WHERE token = $1`

	if _, err := querier.ExecContext(ctx, query, token); err != nil {
		return apperrors.Wrap(err, "failed to delete session")
	}
	return nil
}
