package booking

import (
	"context"
	"time"
)

// StatusEvent is published to the booking status topic after each commit.
type StatusEvent struct {
	BookingID  string    `json:"bookingId"`
	WorkshopID string    `json:"workshopId"`
	CustomerID string    `json:"customerId"`
	ActorID    string    `json:"actorId"`
	FromStatus string    `json:"fromStatus,omitempty"`
	ToStatus   string    `json:"toStatus"`
	OccurredAt time.Time `json:"occurredAt"`
}

// EventWriter is the producer side of the booking status topic.
type EventWriter interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}
