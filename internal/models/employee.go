package models

import (
	"time"

	"github.com/google/uuid"
)

type Employee struct {
	ID           uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLogin    time.Time
	Username     string
	PasswordHash string
	LastName     string
	FirstName    string
	Patronymic   string
	Status       string
	IsActive     bool
}
