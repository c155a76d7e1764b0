package models

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending    BookingStatus = "PENDING"
	BookingConfirmed  BookingStatus = "CONFIRMED"
	BookingInProgress BookingStatus = "IN_PROGRESS"
	BookingCompleted  BookingStatus = "COMPLETED"
	BookingCancelled  BookingStatus = "CANCELLED"
	BookingNoShow     BookingStatus = "NO_SHOW"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:    {BookingConfirmed, BookingCancelled},
	BookingConfirmed:  {BookingInProgress, BookingCancelled, BookingNoShow},
	BookingInProgress: {BookingCompleted, BookingCancelled},
	BookingCompleted:  {},
	BookingCancelled:  {},
	BookingNoShow:     {},
}

// IsValid reports whether s is one of the six booking states.
func (s BookingStatus) IsValid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

// CanTransitionTo reports whether target is in the allowed-next set of s.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, next := range bookingTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s has no outbound transitions.
func (s BookingStatus) IsTerminal() bool {
	return len(bookingTransitions[s]) == 0
}

func (s BookingStatus) String() string {
	return string(s)
}

// AllowedNext returns a copy of the allowed-next set of s.
func (s BookingStatus) AllowedNext() []BookingStatus {
	next := bookingTransitions[s]
	out := make([]BookingStatus, len(next))
	copy(out, next)
	return out
}

// AllBookingStatuses lists every booking state in lifecycle order.
func AllBookingStatuses() []BookingStatus {
	return []BookingStatus{
		BookingPending,
		BookingConfirmed,
		BookingInProgress,
		BookingCompleted,
		BookingCancelled,
		BookingNoShow,
	}
}

func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid booking status: %s", s)
	}
	return status, nil
}

type Booking struct {
	bun.BaseModel `bun:"table:bookings,alias:b"`

	ID             string        `bun:"id,pk" json:"id"`
	CustomerID     string        `bun:"customer_id,notnull" json:"customerId"`
	WorkshopID     string        `bun:"workshop_id,notnull" json:"workshopId"`
	VehicleID      string        `bun:"vehicle_id,notnull" json:"vehicleId"`
	ServiceID      string        `bun:"service_id,notnull" json:"serviceId"`
	ConsultationID string        `bun:"consultation_id,nullzero" json:"consultationId,omitempty"`
	ScheduledAt    time.Time     `bun:"scheduled_at,notnull" json:"scheduledAt"`
	Notes          string        `bun:"notes,nullzero" json:"notes,omitempty"`
	Status         BookingStatus `bun:"status,notnull" json:"status"`
	ChatID         string        `bun:"chat_id,nullzero" json:"chatId,omitempty"`
	CreatedAt      time.Time     `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt      time.Time     `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`
	DeletedAt      *time.Time    `bun:"deleted_at" json:"deletedAt,omitempty"`

	Customer   *User           `bun:"rel:belongs-to,join:customer_id=id" json:"customer,omitempty"`
	Workshop   *Workshop       `bun:"rel:belongs-to,join:workshop_id=id" json:"workshop,omitempty"`
	Vehicle    *Vehicle        `bun:"rel:belongs-to,join:vehicle_id=id" json:"vehicle,omitempty"`
	Service    *ServiceCatalog `bun:"rel:belongs-to,join:service_id=id" json:"service,omitempty"`
	Payment    *Payment        `bun:"rel:has-one,join:id=booking_id" json:"payment,omitempty"`
	Inspection *Inspection     `bun:"rel:has-one,join:id=booking_id" json:"inspection,omitempty"`
	WorkOrder  *WorkOrder      `bun:"rel:has-one,join:id=booking_id" json:"workOrder,omitempty"`
	Review     *Review         `bun:"rel:has-one,join:id=booking_id" json:"review,omitempty"`
	Report     *Report         `bun:"rel:has-one,join:id=booking_id" json:"report,omitempty"`
}

type CreateBookingRequest struct {
	WorkshopID     string    `json:"workshopId" validate:"required"`
	VehicleID      string    `json:"vehicleId" validate:"required"`
	ServiceID      string    `json:"serviceId" validate:"required"`
	ConsultationID string    `json:"consultationId,omitempty"`
	ScheduledAt    time.Time `json:"scheduledAt" validate:"required"`
	Notes          string    `json:"notes,omitempty"`
}

type BookingFilter struct {
	Status     BookingStatus
	WorkshopID string
	CustomerID string
}
