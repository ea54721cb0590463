package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/apolyakov/staffdir/internal/apperrors"
	"github.com/apolyakov/staffdir/internal/models"
)

type RefreshTokenRepo struct {
	DB DBTX
}

const saveToken = `-- name: SaveRefreshToken
INSERT INTO refresh_tokens (id, employee_id, created_at, expires_at, revoked)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, employee_id, created_at, expires_at, revoked
`

func (r *RefreshTokenRepo) Save(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, saveToken, token.ID, token.EmployeeID, token.CreatedAt, token.ExpiresAt, token.Revoked)
	saved, err := pgx.CollectOneRow(rows, rowToToken)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return saved, fmt.Errorf("repo error: %w", apperrors.ErrTokenAlreadyExists)
		}

		return saved, fmt.Errorf("db error: %w", err)
	}

	return saved, nil
}

const getToken = `-- name: GetRefreshToken
SELECT id, employee_id, created_at, expires_at, revoked
FROM refresh_tokens
WHERE id = $1
`

// Get entry by id
// Returns the entry even if it is revoked or expired already
func (r *RefreshTokenRepo) Get(ctx context.Context, id uuid.UUID) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, getToken, id)
	token, err := pgx.CollectOneRow(rows, rowToToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, fmt.Errorf("repo error: %w", apperrors.ErrTokenNotFound)
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const revokeToken = `-- name: RevokeRefreshToken
UPDATE refresh_tokens
SET revoked = TRUE
WHERE id = $1
`

// Revoke single entry
// Idempotent: revoking missing or already revoked entry is not an error
func (r *RefreshTokenRepo) Revoke(ctx context.Context, id uuid.UUID) error {
	_, err := r.DB.Exec(ctx, revokeToken, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const revokeAllForEmployee = `-- name: RevokeAllRefreshTokensForEmployee
UPDATE refresh_tokens
SET revoked = TRUE
WHERE employee_id = $1
`

// Revoke every entry the employee owns, however many there are
func (r *RefreshTokenRepo) RevokeAllForEmployee(ctx context.Context, employeeID uuid.UUID) error {
	_, err := r.DB.Exec(ctx, revokeAllForEmployee, employeeID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const revokeIfUsable = `-- name: RevokeRefreshTokenIfUsable
UPDATE refresh_tokens
SET revoked = TRUE
WHERE id = $1 AND NOT revoked AND expires_at > $2
RETURNING id, employee_id, created_at, expires_at, revoked
`

// Revoke the entry only if it is still usable and return it.
// The single UPDATE takes the row lock, so of two concurrent calls with the
// same id exactly one gets the row back; the loser sees no usable row and gets
// apperrors.ErrTokenNotUsable. Entry expiring exactly at 'now' is not usable.
func (r *RefreshTokenRepo) RevokeIfUsable(ctx context.Context, id uuid.UUID, now time.Time) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, revokeIfUsable, id, now)
	token, err := pgx.CollectOneRow(rows, rowToToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, fmt.Errorf("repo error: %w", apperrors.ErrTokenNotUsable)
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

func rowToToken(row pgx.CollectableRow) (models.RefreshToken, error) {
	var t models.RefreshToken
	err := row.Scan(&t.ID, &t.EmployeeID, &t.CreatedAt, &t.ExpiresAt, &t.Revoked)
	return t, err
}
