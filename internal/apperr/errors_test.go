package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err    *Error
		status int
		code   string
	}{
		{NotFound("Booking"), http.StatusNotFound, "NOT_FOUND"},
		{Forbidden("no"), http.StatusForbidden, "FORBIDDEN"},
		{Unauthorized("no"), http.StatusUnauthorized, "UNAUTHORIZED"},
		{Validation("bad", nil), http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{InvalidTransition("PENDING", "COMPLETED"), http.StatusUnprocessableEntity, "INVALID_TRANSITION"},
		{PaymentRequired("pay first"), http.StatusUnprocessableEntity, "PAYMENT_REQUIRED"},
		{Conflict("dup"), http.StatusConflict, "CONFLICT"},
		{RateLimited(), http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED"},
		{Internal(errors.New("boom")), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.err.HTTPStatus(), tc.code)
		assert.Equal(t, tc.code, tc.err.Code())
	}
}

func TestInvalidTransitionMessageNamesBothStatuses(t *testing.T) {
	err := InvalidTransition("CANCELLED", "IN_PROGRESS")
	assert.Contains(t, err.Error(), "CANCELLED")
	assert.Contains(t, err.Error(), "IN_PROGRESS")
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("update booking: %w", PaymentRequired("missing payment"))
	assert.True(t, IsPaymentRequired(wrapped))
	assert.False(t, IsNotFound(wrapped))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestFromDB(t *testing.T) {
	assert.Nil(t, FromDB(nil, "Booking"))

	err := FromDB(fmt.Errorf("scan: %w", sql.ErrNoRows), "Booking")
	require.True(t, IsNotFound(err))
	assert.Equal(t, "Booking not found", err.Error())

	err = FromDB(&pq.Error{Code: "23505"}, "Payment")
	assert.True(t, IsConflict(err))

	err = FromDB(errors.New("constraint failed: UNIQUE constraint failed: reviews.booking_id"), "Review")
	assert.True(t, IsConflict(err))

	original := Forbidden("nope")
	assert.Same(t, original, FromDB(original, "Booking"))

	other := errors.New("connection reset")
	assert.Equal(t, other, FromDB(other, "Booking"))
}
