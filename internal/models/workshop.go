package models

import (
	"time"

	"github.com/uptrace/bun"
)

type OpenHours struct {
	Monday    string `json:"monday,omitempty"`
	Tuesday   string `json:"tuesday,omitempty"`
	Wednesday string `json:"wednesday,omitempty"`
	Thursday  string `json:"thursday,omitempty"`
	Friday    string `json:"friday,omitempty"`
	Saturday  string `json:"saturday,omitempty"`
	Sunday    string `json:"sunday,omitempty"`
}

type Workshop struct {
	bun.BaseModel `bun:"table:workshops,alias:w"`

	ID        string     `bun:"id,pk" json:"id"`
	OwnerID   string     `bun:"owner_id,notnull" json:"ownerId"`
	Name      string     `bun:"name,notnull" json:"name"`
	Address   string     `bun:"address,notnull" json:"address"`
	City      string     `bun:"city,notnull" json:"city"`
	Latitude  *float64   `bun:"latitude" json:"latitude,omitempty"`
	Longitude *float64   `bun:"longitude" json:"longitude,omitempty"`
	OpenHours *OpenHours `bun:"open_hours,type:jsonb" json:"openHours,omitempty"`
	CreatedAt time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time  `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`
	DeletedAt *time.Time `bun:"deleted_at" json:"deletedAt,omitempty"`

	Owner     *User            `bun:"rel:belongs-to,join:owner_id=id" json:"owner,omitempty"`
	Services  []ServiceCatalog `bun:"rel:has-many,join:id=workshop_id" json:"services,omitempty"`
	Mechanics []Mechanic       `bun:"rel:has-many,join:id=workshop_id" json:"mechanics,omitempty"`
}

type ServiceCatalog struct {
	bun.BaseModel `bun:"table:service_catalogs,alias:sc"`

	ID             string     `bun:"id,pk" json:"id"`
	WorkshopID     string     `bun:"workshop_id,notnull" json:"workshopId"`
	Name           string     `bun:"name,notnull" json:"name"`
	Description    string     `bun:"description,nullzero" json:"description,omitempty"`
	BasePrice      float64    `bun:"base_price,notnull" json:"basePrice"`
	EstDurationMin int        `bun:"est_duration_min,notnull" json:"estDurationMin"`
	CreatedAt      time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt      time.Time  `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`
	DeletedAt      *time.Time `bun:"deleted_at" json:"deletedAt,omitempty"`
}

type Mechanic struct {
	bun.BaseModel `bun:"table:mechanics,alias:m"`

	ID             string    `bun:"id,pk" json:"id"`
	UserID         string    `bun:"user_id,unique,notnull" json:"userId"`
	WorkshopID     string    `bun:"workshop_id,notnull" json:"workshopId"`
	Specialization []string  `bun:"specialization,type:jsonb" json:"specialization"`
	IsActive       bool      `bun:"is_active,notnull" json:"isActive"`
	CreatedAt      time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt      time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`

	User *User `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
}

type CreateWorkshopRequest struct {
	Name      string     `json:"name" validate:"required,min=2"`
	Address   string     `json:"address" validate:"required,min=5"`
	City      string     `json:"city" validate:"required,min=2"`
	Latitude  *float64   `json:"latitude,omitempty" validate:"omitempty,min=-90,max=90"`
	Longitude *float64   `json:"longitude,omitempty" validate:"omitempty,min=-180,max=180"`
	OpenHours *OpenHours `json:"openHours,omitempty"`
}

type UpdateWorkshopRequest struct {
	Name      *string    `json:"name,omitempty" validate:"omitempty,min=2"`
	Address   *string    `json:"address,omitempty" validate:"omitempty,min=5"`
	City      *string    `json:"city,omitempty" validate:"omitempty,min=2"`
	Latitude  *float64   `json:"latitude,omitempty" validate:"omitempty,min=-90,max=90"`
	Longitude *float64   `json:"longitude,omitempty" validate:"omitempty,min=-180,max=180"`
	OpenHours *OpenHours `json:"openHours,omitempty"`
}

type WorkshopQuery struct {
	City     string
	Lat      *float64
	Lng      *float64
	RadiusKm float64
}

type CreateServiceRequest struct {
	Name           string  `json:"name" validate:"required,min=2"`
	Description    string  `json:"description,omitempty"`
	BasePrice      float64 `json:"basePrice" validate:"required,gt=0"`
	EstDurationMin int     `json:"estDurationMin" validate:"required,gt=0"`
}

type UpdateServiceRequest struct {
	Name           *string  `json:"name,omitempty" validate:"omitempty,min=2"`
	Description    *string  `json:"description,omitempty"`
	BasePrice      *float64 `json:"basePrice,omitempty" validate:"omitempty,gt=0"`
	EstDurationMin *int     `json:"estDurationMin,omitempty" validate:"omitempty,gt=0"`
}

type CreateMechanicRequest struct {
	UserID         string   `json:"userId" validate:"required"`
	Specialization []string `json:"specialization" validate:"required,min=1"`
	IsActive       *bool    `json:"isActive,omitempty"`
}

type UpdateMechanicRequest struct {
	Specialization []string `json:"specialization,omitempty"`
	IsActive       *bool    `json:"isActive,omitempty"`
}
