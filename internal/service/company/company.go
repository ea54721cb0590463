package company

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/apolyakov/staffdir/internal/models"
	"github.com/apolyakov/staffdir/internal/repository"
)

type CreateParams struct {
	Name string
	INN  string
}

// UpdateParams is a PATCH style update: nil fields stay untouched
type UpdateParams struct {
	Name     *string
	INN      *string
	IsActive *bool
}

// Service is persistence glue around companies, nothing clever inside
type Service struct {
	storage repository.Storage
}

func NewService(storage repository.Storage) (*Service, error) {
	if storage == nil {
		return nil, errors.New("storage must not be nil")
	}
	return &Service{storage: storage}, nil
}

func (s *Service) Create(ctx context.Context, params CreateParams) (models.Company, error) {
	return s.storage.Company().CreateCompany(ctx, repository.CreateCompanyParams{
		Name: params.Name,
		INN:  params.INN,
	})
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (models.Company, error) {
	return s.storage.Company().GetCompanyByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (models.Company, error) {
	return s.storage.Company().UpdateCompany(ctx, id, repository.UpdateCompanyParams{
		Name:     params.Name,
		INN:      params.INN,
		IsActive: params.IsActive,
	})
}

// Deactivate flips is_active off and keeps the row
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	inactive := false
	_, err := s.storage.Company().UpdateCompany(ctx, id, repository.UpdateCompanyParams{IsActive: &inactive})
	return err
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.storage.Company().DeleteCompany(ctx, id)
}
