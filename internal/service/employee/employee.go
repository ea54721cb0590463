package employee

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/apolyakov/staffdir/internal/models"
	"github.com/apolyakov/staffdir/internal/repository"
	"github.com/apolyakov/staffdir/internal/service/auth"
)

type CreateParams struct {
	Username   string
	Password   string
	LastName   string
	FirstName  string
	Patronymic string
	Status     string
	CompanyIDs []uuid.UUID
}

// UpdateParams is a PATCH style update: nil fields stay untouched.
// CompanyIDs nil means "keep membership", an empty slice clears it.
type UpdateParams struct {
	Password   *string
	LastName   *string
	FirstName  *string
	Patronymic *string
	Status     *string
	IsActive   *bool
	CompanyIDs []uuid.UUID
}

// Service holds the directory logic around employees: plain persistence glue
// plus password hashing on create and password change
type Service struct {
	hasher  auth.PasswordHasher
	storage repository.Storage
}

func NewService(hasher auth.PasswordHasher, storage repository.Storage) (*Service, error) {
	if storage == nil {
		return nil, errors.New("storage must not be nil")
	}

	if hasher == nil {
		hasher = auth.BcryptHasher{}
	}

	return &Service{hasher: hasher, storage: storage}, nil
}

func (s *Service) Create(ctx context.Context, params CreateParams) (models.Employee, error) {
	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return models.Employee{}, fmt.Errorf("can't use this as password, error=%w", err)
	}

	var employee models.Employee
	err = s.storage.InTx(ctx, func(st repository.Storage) error {
		var err error
		employee, err = st.Employee().CreateEmployee(ctx, repository.CreateEmployeeParams{
			Username:     params.Username,
			PasswordHash: hash,
			LastName:     params.LastName,
			FirstName:    params.FirstName,
			Patronymic:   params.Patronymic,
			Status:       params.Status,
		})
		if err != nil {
			return err
		}

		if len(params.CompanyIDs) == 0 {
			return nil
		}
		return st.Employee().SetCompanies(ctx, employee.ID, params.CompanyIDs)
	})
	if err != nil {
		return models.Employee{}, err
	}

	return employee, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (models.Employee, error) {
	return s.storage.Employee().GetEmployeeByID(ctx, id)
}

func (s *Service) GetByUsername(ctx context.Context, username string) (models.Employee, error) {
	return s.storage.Employee().GetEmployeeByUsername(ctx, username)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (models.Employee, error) {
	repoParams := repository.UpdateEmployeeParams{
		LastName:   params.LastName,
		FirstName:  params.FirstName,
		Patronymic: params.Patronymic,
		Status:     params.Status,
		IsActive:   params.IsActive,
	}

	if params.Password != nil {
		hash, err := s.hasher.Hash(*params.Password)
		if err != nil {
			return models.Employee{}, fmt.Errorf("can't use this as password, error=%w", err)
		}
		repoParams.PasswordHash = &hash
	}

	var employee models.Employee
	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		var err error
		employee, err = st.Employee().UpdateEmployee(ctx, id, repoParams)
		if err != nil {
			return err
		}

		if params.CompanyIDs == nil {
			return nil
		}
		return st.Employee().SetCompanies(ctx, id, params.CompanyIDs)
	})
	if err != nil {
		return models.Employee{}, err
	}

	return employee, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.storage.Employee().DeleteEmployee(ctx, id)
}

// Deactivate flips is_active off; the row and its history stay
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	inactive := false
	_, err := s.storage.Employee().UpdateEmployee(ctx, id, repository.UpdateEmployeeParams{IsActive: &inactive})
	return err
}

func (s *Service) ListCompanies(ctx context.Context, id uuid.UUID, onlyActive bool) ([]models.Company, error) {
	// Make sure the employee exists: an empty membership list and a missing
	// employee should not look the same
	if _, err := s.storage.Employee().GetEmployeeByID(ctx, id); err != nil {
		return nil, err
	}

	return s.storage.Employee().ListCompanies(ctx, id, onlyActive)
}
