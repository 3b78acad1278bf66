package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/allisson/gatekeeper/internal/database"
	apperrors "github.com/allisson/gatekeeper/internal/errors"
	"github.com/allisson/gatekeeper/internal/session/domain"
)

// MySQLSessionRepository handles session reads for MySQL.
type MySQLSessionRepository struct {
	db *sql.DB
}

// NewMySQLSessionRepository creates a new MySQLSessionRepository.
func NewMySQLSessionRepository(db *sql.DB) *MySQLSessionRepository {
	return &MySQLSessionRepository{db: db}
}

// GetByToken retrieves a session by its opaque token.
func (r *MySQLSessionRepository) GetByToken(
	ctx context.Context,
	token string,
) (*domain.Session, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT token, user_id, expires_at, created_at FROM sessions WHERE token = ?`

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
func (r *MySQLSessionRepository) Delete(ctx context.Context, token string) error {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM sessions WHERE token = ?`

	if _, err := querier.ExecContext(ctx, query, token); err != nil {
		return apperrors.Wrap(err, "failed to delete session")
	}
	return nil
}
