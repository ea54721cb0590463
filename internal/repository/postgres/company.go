package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/apolyakov/staffdir/internal/apperrors"
	"github.com/apolyakov/staffdir/internal/models"
	"github.com/apolyakov/staffdir/internal/repository"
)

type CompanyRepo struct {
	DB DBTX
}

const companyColumns = `id, created_at, updated_at, name, inn, is_active`

const createCompany = `-- name: CreateCompany
INSERT INTO companies (id, name, inn)
VALUES ($1, $2, $3)
RETURNING ` + companyColumns

func (r *CompanyRepo) CreateCompany(ctx context.Context, params repository.CreateCompanyParams) (models.Company, error) {
	rows, _ := r.DB.Query(ctx, createCompany, uuid.New(), params.Name, params.INN)
	company, err := pgx.CollectOneRow(rows, rowToCompany)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return company, fmt.Errorf("repo error: %w", apperrors.ErrCompanyAlreadyExists)
		}

		return company, fmt.Errorf("db error: %w", err)
	}

	return company, nil
}

const getCompanyByID = `-- name: GetCompanyByID
SELECT ` + companyColumns + `
FROM companies
WHERE id = $1
`

func (r *CompanyRepo) GetCompanyByID(ctx context.Context, id uuid.UUID) (models.Company, error) {
	rows, _ := r.DB.Query(ctx, getCompanyByID, id)
	company, err := pgx.CollectOneRow(rows, rowToCompany)

	switch {
	case err == nil:
		return company, nil
	case errors.Is(err, pgx.ErrNoRows):
		return company, fmt.Errorf("repo error: %w", apperrors.ErrCompanyNotFound)
	default:
		return company, fmt.Errorf("db error: %w", err)
	}
}

const updateCompany = `-- name: UpdateCompany
UPDATE companies
SET name       = COALESCE($2, name),
    inn        = COALESCE($3, inn),
    is_active  = COALESCE($4, is_active),
    updated_at = now()
WHERE id = $1
RETURNING ` + companyColumns

func (r *CompanyRepo) UpdateCompany(ctx context.Context, id uuid.UUID, params repository.UpdateCompanyParams) (models.Company, error) {
	rows, _ := r.DB.Query(ctx, updateCompany, id, params.Name, params.INN, params.IsActive)
	company, err := pgx.CollectOneRow(rows, rowToCompany)

	switch {
	case err == nil:
		return company, nil
	case errors.Is(err, pgx.ErrNoRows):
		return company, fmt.Errorf("repo error: %w", apperrors.ErrCompanyNotFound)
	default:
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return company, fmt.Errorf("repo error: %w", apperrors.ErrCompanyAlreadyExists)
		}
		return company, fmt.Errorf("db error: %w", err)
	}
}

const deleteCompany = `-- name: DeleteCompany
DELETE FROM companies
WHERE id = $1
`

func (r *CompanyRepo) DeleteCompany(ctx context.Context, id uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, deleteCompany, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo error: %w", apperrors.ErrCompanyNotFound)
	}
	return nil
}

func rowToCompany(row pgx.CollectableRow) (models.Company, error) {
	var c models.Company
	err := row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt, &c.Name, &c.INN, &c.IsActive)
	return c, err
}
