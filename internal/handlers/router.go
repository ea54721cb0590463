package handlers

import (
	"net/http"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

// NewRouter wires all handlers under /api/v1. Auth endpoints are open, the
// directory CRUD sits behind the access token middleware.
func NewRouter(
	authHandler *AuthHandler,
	employeeHandler *EmployeeHandler,
	companyHandler *CompanyHandler,
	authMiddleware func(http.Handler) http.Handler,
	loggerMiddleware func(http.Handler) http.Handler,
) http.Handler {
	apiv1 := http.NewServeMux()

	apiv1.Handle("/auth/", authHandler.Handler())

	employees := authMiddleware(employeeHandler.Handler())
	apiv1.Handle("/employees", employees)
	apiv1.Handle("/employees/", employees)

	companies := authMiddleware(companyHandler.Handler())
	apiv1.Handle("/companies", companies)
	apiv1.Handle("/companies/", companies)

	root := http.NewServeMux()
	root.Handle("/api/v1/", http.StripPrefix("/api/v1", apiv1))

	return chain(root, loggerMiddleware)
}
