package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mekaniku/internal/models"
)

func testBooking() *models.Booking {
	return &models.Booking{
		ID:         "b1",
		CustomerID: "cust",
		WorkshopID: "ws",
		Workshop:   &models.Workshop{ID: "ws", OwnerID: "owner"},
	}
}

func TestCanActOnBooking(t *testing.T) {
	b := testBooking()
	tests := []struct {
		name  string
		actor models.Actor
		want  bool
	}{
		{"admin", models.Actor{ID: "x", Role: models.RoleAdmin}, true},
		{"customer", models.Actor{ID: "cust", Role: models.RoleCustomer}, true},
		{"owner", models.Actor{ID: "owner", Role: models.RoleWorkshop}, true},
		{"other customer", models.Actor{ID: "y", Role: models.RoleCustomer}, false},
		{"mechanic of the workshop", models.Actor{ID: "mech", Role: models.RoleWorkshop, WorkshopID: "ws"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanActOnBooking(tt.actor, b))
		})
	}
}

func TestCanRequestTransition(t *testing.T) {
	b := testBooking()
	customer := models.Actor{ID: "cust", Role: models.RoleCustomer}
	owner := models.Actor{ID: "owner", Role: models.RoleWorkshop}
	admin := models.Actor{ID: "adm", Role: models.RoleAdmin}
	stranger := models.Actor{ID: "z", Role: models.RoleWorkshop}

	for _, target := range []models.BookingStatus{
		models.BookingConfirmed, models.BookingInProgress, models.BookingCompleted, models.BookingNoShow,
	} {
		assert.False(t, CanRequestTransition(customer, b, target), target)
		assert.True(t, CanRequestTransition(owner, b, target), target)
		assert.True(t, CanRequestTransition(admin, b, target), target)
		assert.False(t, CanRequestTransition(stranger, b, target), target)
	}

	assert.True(t, CanRequestTransition(customer, b, models.BookingCancelled))
	assert.True(t, CanRequestTransition(owner, b, models.BookingCancelled))
	assert.False(t, CanRequestTransition(stranger, b, models.BookingCancelled))
}

func TestIsPaymentSatisfied(t *testing.T) {
	b := testBooking()
	assert.False(t, IsPaymentSatisfied(b))

	b.Payment = &models.Payment{Status: models.PaymentPending}
	assert.False(t, IsPaymentSatisfied(b))

	b.Payment.Status = models.PaymentFailed
	assert.False(t, IsPaymentSatisfied(b))

	b.Payment.Status = models.PaymentPaid
	assert.True(t, IsPaymentSatisfied(b))
}
