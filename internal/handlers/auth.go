package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/apolyakov/staffdir/internal/apperrors"
	"github.com/apolyakov/staffdir/internal/handlers/middleware"
	"github.com/apolyakov/staffdir/internal/handlers/render"
	"github.com/apolyakov/staffdir/internal/logger"
	"github.com/apolyakov/staffdir/internal/models"
)

type authService interface {
	// Login with username and password
	// Has to return apperrors.ErrAuthFailed on any credential problem
	Login(ctx context.Context, username string, password string) (models.TokenPair, error)

	// Rotate a refresh token into a fresh pair
	// Not usable entries yield apperrors.ErrTokenNotUsable, access tokens
	// apperrors.ErrWrongTokenKind
	Refresh(ctx context.Context, tokenString string) (models.TokenPair, error)

	// Revoke session(s) for the presented token
	Logout(ctx context.Context, tokenString string) error

	// Resolve an access token to its employee (used by middleware)
	Authenticate(ctx context.Context, tokenString string) (models.Employee, error)
}

type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func newTokenPairResponse(pair models.TokenPair) TokenPairResponse {
	return TokenPairResponse{
		AccessToken:  pair.Access.Value,
		RefreshToken: pair.Refresh.Value,
		TokenType:    "bearer",
	}
}

type AuthHandler struct {
	authService authService
	logger      logger.Logger
}

func NewAuth(auth authService, l logger.Logger) *AuthHandler {
	return &AuthHandler{authService: auth, logger: l}
}

func (h *AuthHandler) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", h.login)
	mux.HandleFunc("POST /auth/refresh", h.refresh)
	mux.HandleFunc("POST /auth/logout", h.logout)

	return mux
}

// True for every failure that must surface as the uniform 401 and nothing else
func isAuthError(err error) bool {
	return errors.Is(err, apperrors.ErrAuthFailed) ||
		errors.Is(err, apperrors.ErrTokenInvalid) ||
		errors.Is(err, apperrors.ErrTokenExpired) ||
		errors.Is(err, apperrors.ErrWrongTokenKind) ||
		errors.Is(err, apperrors.ErrTokenNotUsable)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	type LoginRequest struct {
		Username string `json:"username" validate:"required,max=150"`
		Password string `json:"password" validate:"required"`
	}

	data, err := render.BindAndValidate[LoginRequest](w, r)
	if err != nil {
		return
	}

	pair, err := h.authService.Login(r.Context(), data.Username, data.Password)
	switch {
	case err == nil:
	case isAuthError(err):
		render.NotAuthorized(w)
		return
	default:
		h.logger.Error("login failed", "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSON(w, newTokenPairResponse(pair))
}

func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	token, err := middleware.BearerToken(r)
	if err != nil {
		render.NotAuthorized(w)
		return
	}

	pair, err := h.authService.Refresh(r.Context(), token)
	switch {
	case err == nil:
	case isAuthError(err):
		render.NotAuthorized(w)
		return
	default:
		h.logger.Error("refresh failed", "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSON(w, newTokenPairResponse(pair))
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	token, err := middleware.BearerToken(r)
	if err != nil {
		render.NotAuthorized(w)
		return
	}

	err = h.authService.Logout(r.Context(), token)
	switch {
	case err == nil:
	case isAuthError(err):
		render.NotAuthorized(w)
		return
	default:
		h.logger.Error("logout failed", "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
