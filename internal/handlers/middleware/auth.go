package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/apolyakov/staffdir/internal/handlers/employeectx"
	"github.com/apolyakov/staffdir/internal/handlers/render"
	"github.com/apolyakov/staffdir/internal/models"
)

type authService interface {
	// Resolve an access token to its employee
	Authenticate(ctx context.Context, tokenString string) (models.Employee, error)
}

var ErrNoBearerToken = errors.New("no bearer token in request")

// BearerToken extracts the token from the Authorization header.
// Scheme match is case insensitive, same as the usual client behavior.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", ErrNoBearerToken
	}

	return token, nil
}

// AuthMiddleware guards handlers behind a valid access token and puts the
// resolved employee into the request context
func AuthMiddleware(as authService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := BearerToken(r)
			if err != nil {
				render.NotAuthorized(w)
				return
			}

			employee, err := as.Authenticate(r.Context(), token)
			if err != nil {
				render.NotAuthorized(w)
				return
			}

			ctx := employeectx.New(r.Context(), employee)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
