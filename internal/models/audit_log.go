package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	AuditActionCreate         = "CREATE"
	AuditActionStatusUpdate   = "STATUS_UPDATE"
	AuditActionPaymentSuccess = "PAYMENT_SUCCESS"

	EntityBooking   = "Booking"
	EntityPayment   = "Payment"
	EntityWorkOrder = "WorkOrder"
)

// AuditLog rows are append-only.
type AuditLog struct {
	bun.BaseModel `bun:"table:audit_logs,alias:al"`

	ID         string                 `bun:"id,pk" json:"id"`
	ActorID    string                 `bun:"actor_id,notnull" json:"actorId"`
	EntityType string                 `bun:"entity_type,notnull" json:"entityType"`
	EntityID   string                 `bun:"entity_id,notnull" json:"entityId"`
	Action     string                 `bun:"action,notnull" json:"action"`
	FromStatus string                 `bun:"from_status,nullzero" json:"fromStatus,omitempty"`
	ToStatus   string                 `bun:"to_status,nullzero" json:"toStatus,omitempty"`
	Meta       map[string]interface{} `bun:"meta,type:jsonb" json:"meta,omitempty"`
	CreatedAt  time.Time              `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
}
