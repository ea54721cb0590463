package employeectx

import (
	"context"

	"github.com/apolyakov/staffdir/internal/models"
)

type ctxKey string

const employeeKey ctxKey = "employee"

// Create a new context with the employee
func New(ctx context.Context, e models.Employee) context.Context {
	return context.WithValue(ctx, employeeKey, e)
}

// Extract the employee from the context
func FromContext(ctx context.Context) (models.Employee, bool) {
	e, ok := ctx.Value(employeeKey).(models.Employee)
	return e, ok
}
