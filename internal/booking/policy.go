package booking

import "mekaniku/internal/models"

// CanActOnBooking reports whether actor is an admin, the booking's customer,
// or the owner of the booking's workshop. booking.Workshop must be loaded.
func CanActOnBooking(actor models.Actor, booking *models.Booking) bool {
	if actor.IsAdmin() {
		return true
	}
	if actor.ID == booking.CustomerID {
		return true
	}
	return booking.Workshop != nil && actor.ID == booking.Workshop.OwnerID
}

// CanRequestTransition narrows CanActOnBooking per target status. Only the
// workshop side drives the service forward; either party may cancel.
func CanRequestTransition(actor models.Actor, booking *models.Booking, target models.BookingStatus) bool {
	if !CanActOnBooking(actor, booking) {
		return false
	}
	if actor.IsAdmin() || target == models.BookingCancelled {
		return true
	}
	return booking.Workshop != nil && actor.ID == booking.Workshop.OwnerID
}

// IsPaymentSatisfied reports whether the booking has a PAID payment.
func IsPaymentSatisfied(booking *models.Booking) bool {
	return booking.Payment != nil && booking.Payment.Status == models.PaymentPaid
}
