package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleWorkshop Role = "WORKSHOP"
	RoleAdmin    Role = "ADMIN"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleWorkshop, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           string     `bun:"id,pk" json:"id"`
	Name         string     `bun:"name,notnull" json:"name"`
	Email        string     `bun:"email,unique,notnull" json:"email"`
	Phone        string     `bun:"phone,nullzero" json:"phone,omitempty"`
	PasswordHash string     `bun:"password_hash,notnull" json:"-"`
	Role         Role       `bun:"role,notnull" json:"role"`
	CreatedAt    time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt    time.Time  `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`
	DeletedAt    *time.Time `bun:"deleted_at" json:"deletedAt,omitempty"`
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID         string `json:"userId"`
	Email      string `json:"email"`
	Role       Role   `json:"role"`
	WorkshopID string `json:"workshopId,omitempty"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
