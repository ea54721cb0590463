package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/apolyakov/staffdir/internal/apperrors"
	"github.com/apolyakov/staffdir/internal/handlers/render"
	"github.com/apolyakov/staffdir/internal/logger"
	"github.com/apolyakov/staffdir/internal/models"
	"github.com/apolyakov/staffdir/internal/service/company"
)

type companyService interface {
	Create(ctx context.Context, params company.CreateParams) (models.Company, error)
	GetByID(ctx context.Context, id uuid.UUID) (models.Company, error)
	Update(ctx context.Context, id uuid.UUID, params company.UpdateParams) (models.Company, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type CompanyResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	INN       string    `json:"inn"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newCompanyResponse(c models.Company) CompanyResponse {
	return CompanyResponse{
		ID:        c.ID,
		Name:      c.Name,
		INN:       c.INN,
		IsActive:  c.IsActive,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type CompanyHandler struct {
	companyService companyService
	logger         logger.Logger
}

func NewCompany(svc companyService, l logger.Logger) *CompanyHandler {
	return &CompanyHandler{companyService: svc, logger: l}
}

func (h *CompanyHandler) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /companies", h.create)
	mux.HandleFunc("GET /companies/{id}", h.get)
	mux.HandleFunc("PATCH /companies/{id}", h.update)
	mux.HandleFunc("DELETE /companies/{id}", h.delete)
	mux.HandleFunc("POST /companies/{id}/deactivate", h.deactivate)

	return mux
}

func (h *CompanyHandler) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrCompanyNotFound):
		render.ServiceError(w, "Company not found", http.StatusNotFound)
	case errors.Is(err, apperrors.ErrCompanyAlreadyExists):
		render.ServiceError(w, "Company already exists", http.StatusConflict)
	default:
		h.logger.Error("company handler failed", "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *CompanyHandler) create(w http.ResponseWriter, r *http.Request) {
	type CreateRequest struct {
		Name string `json:"name" validate:"required,max=200"`
		INN  string `json:"inn" validate:"required,inn"`
	}

	data, err := render.BindAndValidate[CreateRequest](w, r)
	if err != nil {
		return
	}

	created, err := h.companyService.Create(r.Context(), company.CreateParams{
		Name: data.Name,
		INN:  data.INN,
	})
	if err != nil {
		h.serviceError(w, err)
		return
	}

	render.JSONWithStatus(w, newCompanyResponse(created), http.StatusCreated)
}

func (h *CompanyHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromPath(w, r, "Company not found")
	if !ok {
		return
	}

	found, err := h.companyService.GetByID(r.Context(), id)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	render.JSON(w, newCompanyResponse(found))
}

func (h *CompanyHandler) update(w http.ResponseWriter, r *http.Request) {
	type UpdateRequest struct {
		Name     *string `json:"name" validate:"omitempty,max=200"`
		INN      *string `json:"inn" validate:"omitempty,inn"`
		IsActive *bool   `json:"is_active"`
	}

	id, ok := idFromPath(w, r, "Company not found")
	if !ok {
		return
	}

	data, err := render.BindAndValidate[UpdateRequest](w, r)
	if err != nil {
		return
	}

	updated, err := h.companyService.Update(r.Context(), id, company.UpdateParams{
		Name:     data.Name,
		INN:      data.INN,
		IsActive: data.IsActive,
	})
	if err != nil {
		h.serviceError(w, err)
		return
	}

	render.JSON(w, newCompanyResponse(updated))
}

func (h *CompanyHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromPath(w, r, "Company not found")
	if !ok {
		return
	}

	if err := h.companyService.Delete(r.Context(), id); err != nil {
		h.serviceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CompanyHandler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromPath(w, r, "Company not found")
	if !ok {
		return
	}

	if err := h.companyService.Deactivate(r.Context(), id); err != nil {
		h.serviceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
