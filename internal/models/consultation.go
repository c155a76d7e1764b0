package models

import (
	"time"

	"github.com/uptrace/bun"
)

type ConsultationStatus string

const (
	ConsultationOpen   ConsultationStatus = "OPEN"
	ConsultationClosed ConsultationStatus = "CLOSED"
)

type Consultation struct {
	bun.BaseModel `bun:"table:consultations,alias:c"`

	ID         string             `bun:"id,pk" json:"id"`
	CustomerID string             `bun:"customer_id,notnull" json:"customerId"`
	WorkshopID string             `bun:"workshop_id,notnull" json:"workshopId"`
	Message    string             `bun:"message,notnull" json:"message"`
	Status     ConsultationStatus `bun:"status,notnull" json:"status"`
	ChatID     string             `bun:"chat_id,nullzero" json:"chatId,omitempty"`
	CreatedAt  time.Time          `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt  time.Time          `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`

	Customer *User     `bun:"rel:belongs-to,join:customer_id=id" json:"customer,omitempty"`
	Workshop *Workshop `bun:"rel:belongs-to,join:workshop_id=id" json:"workshop,omitempty"`
}

type CreateConsultationRequest struct {
	WorkshopID string `json:"workshopId" validate:"required"`
	Message    string `json:"message" validate:"required,min=10"`
}
