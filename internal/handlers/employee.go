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
	"github.com/apolyakov/staffdir/internal/service/employee"
)

type employeeService interface {
	Create(ctx context.Context, params employee.CreateParams) (models.Employee, error)
	GetByID(ctx context.Context, id uuid.UUID) (models.Employee, error)
	Update(ctx context.Context, id uuid.UUID, params employee.UpdateParams) (models.Employee, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	ListCompanies(ctx context.Context, id uuid.UUID, onlyActive bool) ([]models.Company, error)
}

type EmployeeResponse struct {
	ID         uuid.UUID `json:"id"`
	Username   string    `json:"username"`
	LastName   string    `json:"last_name"`
	FirstName  string    `json:"first_name"`
	Patronymic string    `json:"patronymic"`
	Status     string    `json:"status"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	LastLogin  time.Time `json:"last_login"`
}

func newEmployeeResponse(e models.Employee) EmployeeResponse {
	return EmployeeResponse{
		ID:         e.ID,
		Username:   e.Username,
		LastName:   e.LastName,
		FirstName:  e.FirstName,
		Patronymic: e.Patronymic,
		Status:     e.Status,
		IsActive:   e.IsActive,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
		LastLogin:  e.LastLogin,
	}
}

type EmployeeHandler struct {
	employeeService employeeService
	logger          logger.Logger
}

func NewEmployee(svc employeeService, l logger.Logger) *EmployeeHandler {
	return &EmployeeHandler{employeeService: svc, logger: l}
}

func (h *EmployeeHandler) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /employees", h.create)
	mux.HandleFunc("GET /employees/{id}", h.get)
	mux.HandleFunc("PATCH /employees/{id}", h.update)
	mux.HandleFunc("DELETE /employees/{id}", h.delete)
	mux.HandleFunc("POST /employees/{id}/deactivate", h.deactivate)
	mux.HandleFunc("GET /employees/{id}/companies", h.listCompanies)

	return mux
}

// idFromPath parses the {id} path segment; replies 404 itself on garbage so
// unknown and malformed ids look the same to the caller
func idFromPath(w http.ResponseWriter, r *http.Request, notFoundMsg string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		render.ServiceError(w, notFoundMsg, http.StatusNotFound)
		return uuid.Nil, false
	}
	return id, true
}

func (h *EmployeeHandler) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrEmployeeNotFound):
		render.ServiceError(w, "Employee not found", http.StatusNotFound)
	case errors.Is(err, apperrors.ErrEmployeeAlreadyExists):
		render.ServiceError(w, "Employee already exists", http.StatusConflict)
	case errors.Is(err, apperrors.ErrCompanyNotFound):
		render.ServiceError(w, "Company not found", http.StatusBadRequest)
	default:
		h.logger.Error("employee handler failed", "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *EmployeeHandler) create(w http.ResponseWriter, r *http.Request) {
	type CreateRequest struct {
		Username   string      `json:"username" validate:"required,max=150"`
		Password   string      `json:"password" validate:"required,min=6"`
		LastName   string      `json:"last_name" validate:"required,max=100"`
		FirstName  string      `json:"first_name" validate:"required,max=100"`
		Patronymic string      `json:"patronymic" validate:"required,max=100"`
		Status     string      `json:"status" validate:"required,max=30"`
		CompanyIDs []uuid.UUID `json:"company_ids"`
	}

	data, err := render.BindAndValidate[CreateRequest](w, r)
	if err != nil {
		return
	}

	created, err := h.employeeService.Create(r.Context(), employee.CreateParams{
		Username:   data.Username,
		Password:   data.Password,
		LastName:   data.LastName,
		FirstName:  data.FirstName,
		Patronymic: data.Patronymic,
		Status:     data.Status,
		CompanyIDs: data.CompanyIDs,
	})
	if err != nil {
		h.serviceError(w, err)
		return
	}

	render.JSONWithStatus(w, newEmployeeResponse(created), http.StatusCreated)
}

func (h *EmployeeHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromPath(w, r, "Employee not found")
	if !ok {
		return
	}

	found, err := h.employeeService.GetByID(r.Context(), id)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	render.JSON(w, newEmployeeResponse(found))
}

func (h *EmployeeHandler) update(w http.ResponseWriter, r *http.Request) {
	type UpdateRequest struct {
		Password   *string     `json:"password" validate:"omitempty,min=6"`
		LastName   *string     `json:"last_name" validate:"omitempty,max=100"`
		FirstName  *string     `json:"first_name" validate:"omitempty,max=100"`
		Patronymic *string     `json:"patronymic" validate:"omitempty,max=100"`
		Status     *string     `json:"status" validate:"omitempty,max=30"`
		IsActive   *bool       `json:"is_active"`
		CompanyIDs []uuid.UUID `json:"company_ids"`
	}

	id, ok := idFromPath(w, r, "Employee not found")
	if !ok {
		return
	}

	data, err := render.BindAndValidate[UpdateRequest](w, r)
	if err != nil {
		return
	}

	updated, err := h.employeeService.Update(r.Context(), id, employee.UpdateParams{
		Password:   data.Password,
		LastName:   data.LastName,
		FirstName:  data.FirstName,
		Patronymic: data.Patronymic,
		Status:     data.Status,
		IsActive:   data.IsActive,
		CompanyIDs: data.CompanyIDs,
	})
	if err != nil {
		h.serviceError(w, err)
		return
	}

	render.JSON(w, newEmployeeResponse(updated))
}

func (h *EmployeeHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromPath(w, r, "Employee not found")
	if !ok {
		return
	}

	if err := h.employeeService.Delete(r.Context(), id); err != nil {
		h.serviceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *EmployeeHandler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromPath(w, r, "Employee not found")
	if !ok {
		return
	}

	if err := h.employeeService.Deactivate(r.Context(), id); err != nil {
		h.serviceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *EmployeeHandler) listCompanies(w http.ResponseWriter, r *http.Request) {
	id, ok := idFromPath(w, r, "Employee not found")
	if !ok {
		return
	}

	onlyActive := r.URL.Query().Get("active") == "true"

	companies, err := h.employeeService.ListCompanies(r.Context(), id, onlyActive)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	response := make([]CompanyResponse, 0, len(companies))
	for _, c := range companies {
		response = append(response, newCompanyResponse(c))
	}

	render.JSON(w, response)
}
