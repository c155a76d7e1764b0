package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Vehicle struct {
	bun.BaseModel `bun:"table:vehicles,alias:v"`

	ID         string    `bun:"id,pk" json:"id"`
	CustomerID string    `bun:"customer_id,notnull" json:"customerId"`
	PlateNo    string    `bun:"plate_no,notnull" json:"plateNo"`
	Brand      string    `bun:"brand,notnull" json:"brand"`
	Model      string    `bun:"model,notnull" json:"model"`
	Year       int       `bun:"year,notnull" json:"year"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt  time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`
}

type CreateVehicleRequest struct {
	PlateNo string `json:"plateNo" validate:"required"`
	Brand   string `json:"brand" validate:"required"`
	Model   string `json:"model" validate:"required"`
	Year    int    `json:"year" validate:"required,min=1900"`
}

type UpdateVehicleRequest struct {
	PlateNo *string `json:"plateNo,omitempty" validate:"omitempty,min=1"`
	Brand   *string `json:"brand,omitempty" validate:"omitempty,min=1"`
	Model   *string `json:"model,omitempty" validate:"omitempty,min=1"`
	Year    *int    `json:"year,omitempty" validate:"omitempty,min=1900"`
}
