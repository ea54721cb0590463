package apperrors

import (
	"errors"
)

var (
	ErrEmployeeAlreadyExists = errors.New("employee already exists")
	ErrEmployeeNotFound      = errors.New("employee not found")

	ErrCompanyAlreadyExists = errors.New("company already exists")
	ErrCompanyNotFound      = errors.New("company not found")

	// Generic authentication failure. Handlers must never expose the real
	// cause (unknown user, wrong password, inactive account) to the client.
	ErrAuthFailed = errors.New("authentication failed")

	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenExpired   = errors.New("token is expired")
	ErrWrongTokenKind = errors.New("wrong token kind")

	ErrTokenAlreadyExists = errors.New("refresh token already exists")
	ErrTokenNotFound      = errors.New("refresh token not found")
	ErrTokenNotUsable     = errors.New("refresh token revoked or expired")
)
