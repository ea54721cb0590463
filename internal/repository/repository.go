package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/apolyakov/staffdir/internal/models"
)

type CreateEmployeeParams struct {
	Username     string
	PasswordHash string
	LastName     string
	FirstName    string
	Patronymic   string
	Status       string
}

// UpdateEmployeeParams is the explicit allow-list of patchable employee
// fields. Nil pointers mean "leave as is".
type UpdateEmployeeParams struct {
	PasswordHash *string
	LastName     *string
	FirstName    *string
	Patronymic   *string
	Status       *string
	IsActive     *bool
}

// Employee repository interface
type EmployeeRepo interface {
	// Create employee
	// If employee with the username exists already has to return apperrors.ErrEmployeeAlreadyExists
	CreateEmployee(ctx context.Context, params CreateEmployeeParams) (models.Employee, error)

	// Get employee by id or username
	// If employee not found must return apperrors.ErrEmployeeNotFound
	GetEmployeeByID(ctx context.Context, id uuid.UUID) (models.Employee, error)
	GetEmployeeByUsername(ctx context.Context, username string) (models.Employee, error)

	// Update only the fields set in params, bump updated_at
	UpdateEmployee(ctx context.Context, id uuid.UUID, params UpdateEmployeeParams) (models.Employee, error)

	// Delete employee, membership rows and refresh tokens go with it (FK cascade)
	DeleteEmployee(ctx context.Context, id uuid.UUID) error

	// Set last_login to now
	TouchLastLogin(ctx context.Context, id uuid.UUID) error

	// Replace employee's company membership set
	SetCompanies(ctx context.Context, employeeID uuid.UUID, companyIDs []uuid.UUID) error

	// List companies the employee belongs to, optionally active only
	ListCompanies(ctx context.Context, employeeID uuid.UUID, onlyActive bool) ([]models.Company, error)
}

type CreateCompanyParams struct {
	Name string
	INN  string
}

type UpdateCompanyParams struct {
	Name     *string
	INN      *string
	IsActive *bool
}

// Company repository interface
type CompanyRepo interface {
	// Create company
	// If company with same name or inn exists must return apperrors.ErrCompanyAlreadyExists
	CreateCompany(ctx context.Context, params CreateCompanyParams) (models.Company, error)

	// If company not found must return apperrors.ErrCompanyNotFound
	GetCompanyByID(ctx context.Context, id uuid.UUID) (models.Company, error)

	UpdateCompany(ctx context.Context, id uuid.UUID, params UpdateCompanyParams) (models.Company, error)

	DeleteCompany(ctx context.Context, id uuid.UUID) error
}

// RefreshToken repository interface: the ledger of every refresh token ever issued
type RefreshTokenRepo interface {
	// Save new ledger entry
	// Must return apperrors.ErrTokenAlreadyExists on id collision, never overwrite
	Save(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error)

	// Get entry by id whatever state it is in
	// If not found must return apperrors.ErrTokenNotFound
	Get(ctx context.Context, id uuid.UUID) (models.RefreshToken, error)

	// Set revoked for one entry
	// Idempotent: missing or already revoked entries are not an error
	Revoke(ctx context.Context, id uuid.UUID) error

	// Set revoked for every entry the employee owns, idempotent as well
	RevokeAllForEmployee(ctx context.Context, employeeID uuid.UUID) error

	// Atomically revoke the entry if it is still usable (not revoked, expires after now)
	// and return it. Exactly one of two racing calls may win; the rest get
	// apperrors.ErrTokenNotUsable
	RevokeIfUsable(ctx context.Context, id uuid.UUID, now time.Time) (models.RefreshToken, error)
}

// Storage combines all repositories over a single db handle
type Storage interface {
	Employee() EmployeeRepo
	Company() CompanyRepo
	Refresh() RefreshTokenRepo

	// Run fn within one db transaction. The storage passed to fn operates on
	// the transaction; returning an error rolls everything back.
	InTx(ctx context.Context, fn func(Storage) error) error
}
