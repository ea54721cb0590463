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

type EmployeeRepo struct {
	DB DBTX
}

const employeeColumns = `id, created_at, updated_at, last_login, username, password_hash, last_name, first_name, patronymic, status, is_active`

const createEmployee = `-- name: CreateEmployee
INSERT INTO employees (id, username, password_hash, last_name, first_name, patronymic, status)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + employeeColumns

func (r *EmployeeRepo) CreateEmployee(ctx context.Context, params repository.CreateEmployeeParams) (models.Employee, error) {
	rows, _ := r.DB.Query(ctx, createEmployee,
		uuid.New(), params.Username, params.PasswordHash,
		params.LastName, params.FirstName, params.Patronymic, params.Status,
	)
	employee, err := pgx.CollectOneRow(rows, rowToEmployee)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return employee, fmt.Errorf("repo error: %w", apperrors.ErrEmployeeAlreadyExists)
		}

		return employee, fmt.Errorf("db error: %w", err)
	}

	return employee, nil
}

const getEmployeeByID = `-- name: GetEmployeeByID
SELECT ` + employeeColumns + `
FROM employees
WHERE id = $1
`

func (r *EmployeeRepo) GetEmployeeByID(ctx context.Context, id uuid.UUID) (models.Employee, error) {
	rows, _ := r.DB.Query(ctx, getEmployeeByID, id)
	employee, err := pgx.CollectOneRow(rows, rowToEmployee)

	switch {
	case err == nil:
		return employee, nil
	case errors.Is(err, pgx.ErrNoRows):
		return employee, fmt.Errorf("repo error: %w", apperrors.ErrEmployeeNotFound)
	default:
		return employee, fmt.Errorf("db error: %w", err)
	}
}

const getEmployeeByUsername = `-- name: GetEmployeeByUsername
SELECT ` + employeeColumns + `
FROM employees
WHERE username = $1
`

func (r *EmployeeRepo) GetEmployeeByUsername(ctx context.Context, username string) (models.Employee, error) {
	rows, _ := r.DB.Query(ctx, getEmployeeByUsername, username)
	employee, err := pgx.CollectOneRow(rows, rowToEmployee)

	switch {
	case err == nil:
		return employee, nil
	case errors.Is(err, pgx.ErrNoRows):
		return employee, fmt.Errorf("repo error: %w", apperrors.ErrEmployeeNotFound)
	default:
		return employee, fmt.Errorf("db error: %w", err)
	}
}

const updateEmployee = `-- name: UpdateEmployee
UPDATE employees
SET password_hash = COALESCE($2, password_hash),
    last_name     = COALESCE($3, last_name),
    first_name    = COALESCE($4, first_name),
    patronymic    = COALESCE($5, patronymic),
    status        = COALESCE($6, status),
    is_active     = COALESCE($7, is_active),
    updated_at    = now()
WHERE id = $1
RETURNING ` + employeeColumns

// Update only the fields set in params (nil pointers become NULL and keep the
// stored value via COALESCE)
func (r *EmployeeRepo) UpdateEmployee(ctx context.Context, id uuid.UUID, params repository.UpdateEmployeeParams) (models.Employee, error) {
	rows, _ := r.DB.Query(ctx, updateEmployee, id,
		params.PasswordHash, params.LastName, params.FirstName,
		params.Patronymic, params.Status, params.IsActive,
	)
	employee, err := pgx.CollectOneRow(rows, rowToEmployee)

	switch {
	case err == nil:
		return employee, nil
	case errors.Is(err, pgx.ErrNoRows):
		return employee, fmt.Errorf("repo error: %w", apperrors.ErrEmployeeNotFound)
	default:
		return employee, fmt.Errorf("db error: %w", err)
	}
}

const deleteEmployee = `-- name: DeleteEmployee
DELETE FROM employees
WHERE id = $1
`

func (r *EmployeeRepo) DeleteEmployee(ctx context.Context, id uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, deleteEmployee, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo error: %w", apperrors.ErrEmployeeNotFound)
	}
	return nil
}

const touchLastLogin = `-- name: TouchLastLogin
UPDATE employees
SET last_login = now()
WHERE id = $1
`

func (r *EmployeeRepo) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	_, err := r.DB.Exec(ctx, touchLastLogin, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const deleteCompanies = `-- name: DeleteEmployeeCompanies
DELETE FROM employees_companies
WHERE employee_id = $1
`

const insertCompanies = `-- name: InsertEmployeeCompanies
INSERT INTO employees_companies (employee_id, company_id)
SELECT $1, unnest($2::uuid[])
`

// Replace the membership set: old links go away, the passed ones remain.
// Callers that need the swap to be atomic should run it inside Storage.InTx.
func (r *EmployeeRepo) SetCompanies(ctx context.Context, employeeID uuid.UUID, companyIDs []uuid.UUID) error {
	_, err := r.DB.Exec(ctx, deleteCompanies, employeeID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	if len(companyIDs) == 0 {
		return nil
	}

	_, err = r.DB.Exec(ctx, insertCompanies, employeeID, companyIDs)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			if pgErr.ConstraintName == "employees_companies_employee_id_fkey" {
				return fmt.Errorf("repo error: %w", apperrors.ErrEmployeeNotFound)
			}
			return fmt.Errorf("repo error: %w", apperrors.ErrCompanyNotFound)
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

const listCompanies = `-- name: ListEmployeeCompanies
SELECT c.id, c.created_at, c.updated_at, c.name, c.inn, c.is_active
FROM companies c
JOIN employees_companies ec ON ec.company_id = c.id
WHERE ec.employee_id = $1 AND (NOT $2::boolean OR c.is_active)
ORDER BY c.name
`

func (r *EmployeeRepo) ListCompanies(ctx context.Context, employeeID uuid.UUID, onlyActive bool) ([]models.Company, error) {
	rows, _ := r.DB.Query(ctx, listCompanies, employeeID, onlyActive)
	companies, err := pgx.CollectRows(rows, rowToCompany)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return companies, nil
}

func rowToEmployee(row pgx.CollectableRow) (models.Employee, error) {
	var e models.Employee
	err := row.Scan(
		&e.ID, &e.CreatedAt, &e.UpdatedAt, &e.LastLogin,
		&e.Username, &e.PasswordHash,
		&e.LastName, &e.FirstName, &e.Patronymic,
		&e.Status, &e.IsActive,
	)
	return e, err
}
