package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is the ledger row backing one issued refresh token.
// The ID is the jti claim of the token itself.
// Revoked may only flip false -> true, it never goes back.
type RefreshToken struct {
	ID         uuid.UUID
	EmployeeID uuid.UUID
	CreatedAt  time.Time
	ExpiresAt  time.Time
	Revoked    bool
}

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Token pair issued by the auth service on login and refresh
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}
