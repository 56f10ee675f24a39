package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	UserRoleAdmin       = "admin"
	UserRoleClient      = "client"
	UserRoleBeneficiary = "beneficiary"
)

type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
