package models

import (
	"time"

	"github.com/uptrace/bun"
)

type WorkStatus string

const (
	WorkQueued     WorkStatus = "QUEUED"
	WorkInProgress WorkStatus = "IN_PROGRESS"
	WorkDone       WorkStatus = "DONE"
)

type Inspection struct {
	bun.BaseModel `bun:"table:inspections,alias:i"`

	ID        string                 `bun:"id,pk" json:"id"`
	BookingID string                 `bun:"booking_id,unique,notnull" json:"bookingId"`
	Findings  map[string]interface{} `bun:"findings,type:jsonb" json:"findings"`
	Photos    []string               `bun:"photos,type:jsonb" json:"photos"`
	CreatedAt time.Time              `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time              `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`
}

type WorkOrder struct {
	bun.BaseModel `bun:"table:work_orders,alias:wo"`

	ID         string                 `bun:"id,pk" json:"id"`
	BookingID  string                 `bun:"booking_id,unique,notnull" json:"bookingId"`
	Tasks      map[string]interface{} `bun:"tasks,type:jsonb" json:"tasks"`
	Parts      map[string]interface{} `bun:"parts,type:jsonb" json:"parts"`
	LaborHours float64                `bun:"labor_hours,notnull" json:"laborHours"`
	Subtotal   float64                `bun:"subtotal,notnull" json:"subtotal"`
	Status     WorkStatus             `bun:"status,notnull" json:"status"`
	CreatedAt  time.Time              `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt  time.Time              `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`
}

type Review struct {
	bun.BaseModel `bun:"table:reviews,alias:r"`

	ID         string    `bun:"id,pk" json:"id"`
	BookingID  string    `bun:"booking_id,unique,notnull" json:"bookingId"`
	CustomerID string    `bun:"customer_id,notnull" json:"customerId"`
	Rating     int       `bun:"rating,notnull" json:"rating"`
	Comment    string    `bun:"comment,nullzero" json:"comment,omitempty"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
}

type Report struct {
	bun.BaseModel `bun:"table:reports,alias:rp"`

	ID               string    `bun:"id,pk" json:"id"`
	BookingID        string    `bun:"booking_id,unique,notnull" json:"bookingId"`
	Summary          string    `bun:"summary,notnull" json:"summary"`
	TotalCost        float64   `bun:"total_cost,notnull" json:"totalCost"`
	PDFURL           string    `bun:"pdf_url,nullzero" json:"pdfUrl,omitempty"`
	VerificationCode string    `bun:"verification_code,nullzero" json:"verificationCode,omitempty"`
	CreatedAt        time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`

	Booking *Booking `bun:"rel:belongs-to,join:booking_id=id" json:"booking,omitempty"`
}

type CreateInspectionRequest struct {
	Findings map[string]interface{} `json:"findings" validate:"required"`
	Photos   []string               `json:"photos,omitempty" validate:"omitempty,dive,url"`
}

type CreateWorkOrderRequest struct {
	Tasks      map[string]interface{} `json:"tasks" validate:"required"`
	Parts      map[string]interface{} `json:"parts" validate:"required"`
	LaborHours float64                `json:"laborHours" validate:"min=0"`
	Subtotal   float64                `json:"subtotal" validate:"min=0"`
}

type UpdateWorkOrderStatusRequest struct {
	Status     WorkStatus             `json:"status" validate:"required,oneof=QUEUED IN_PROGRESS DONE"`
	Tasks      map[string]interface{} `json:"tasks,omitempty"`
	Parts      map[string]interface{} `json:"parts,omitempty"`
	LaborHours *float64               `json:"laborHours,omitempty" validate:"omitempty,min=0"`
	Subtotal   *float64               `json:"subtotal,omitempty" validate:"omitempty,min=0"`
}

type CreateReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment,omitempty"`
}

type GenerateReportRequest struct {
	Summary string `json:"summary" validate:"required,min=10"`
}

type VerifyReportRequest struct {
	Code string `json:"code" validate:"required"`
}
