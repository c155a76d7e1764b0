package models

import (
	"time"

	"github.com/uptrace/bun"
)

type NotificationType string

const (
	NotificationBookingCreated      NotificationType = "BOOKING_CREATED"
	NotificationStatusChanged       NotificationType = "STATUS_CHANGED"
	NotificationPaymentConfirmed    NotificationType = "PAYMENT_CONFIRMED"
	NotificationConsultationCreated NotificationType = "CONSULTATION_CREATED"
)

type Notification struct {
	bun.BaseModel `bun:"table:notifications,alias:n"`

	ID        string                 `bun:"id,pk" json:"id"`
	ToUserID  string                 `bun:"to_user_id,notnull" json:"toUserId"`
	Type      NotificationType       `bun:"type,notnull" json:"type"`
	Payload   map[string]interface{} `bun:"payload,type:jsonb" json:"payload"`
	ReadAt    *time.Time             `bun:"read_at" json:"readAt"`
	CreatedAt time.Time              `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
}
