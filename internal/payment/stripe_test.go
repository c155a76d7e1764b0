package payment_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mekaniku/internal/database/dbtest"
	"mekaniku/internal/dispatch"
	"mekaniku/internal/logger"
	"mekaniku/internal/models"
	"mekaniku/internal/payment"
	payment_db "mekaniku/internal/payment/db"
)

type stripeCall struct {
	idempotencyKey string
	amount         string
	bookingID      string
}

// fakeStripe answers POST /v1/payment_intents with a fixed status and body.
func fakeStripe(t *testing.T, status int, body string) (*httptest.Server, *[]stripeCall) {
	t.Helper()
	var mu sync.Mutex
	calls := &[]stripeCall{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/payment_intents" {
			http.NotFound(w, r)
			return
		}
		assert.NoError(t, r.ParseForm())
		mu.Lock()
		*calls = append(*calls, stripeCall{
			idempotencyKey: r.Header.Get("Idempotency-Key"),
			amount:         r.PostForm.Get("amount"),
			bookingID:      r.PostForm.Get("metadata[booking_id]"),
		})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, calls
}

func stripeGateway(t *testing.T, url string) *payment.StripeGateway {
	t.Helper()
	g, err := payment.NewStripeGateway("sk_test_123", logger.Discard())
	require.NoError(t, err)
	return g.WithAPIURL(url)
}

func card(amount float64) payment.ChargeRequest {
	return payment.ChargeRequest{
		PaymentID:       "pay_1",
		BookingID:       "bk_1",
		Amount:          amount,
		Currency:        "IDR",
		Method:          models.MethodCreditCard,
		PaymentMethodID: "pm_card_visa",
	}
}

const declined = `{"error":{"type":"card_error","code":"card_declined","decline_code":"insufficient_funds",` +
	`"message":"Your card has insufficient funds.","payment_intent":{"id":"pi_declined","object":"payment_intent","status":"requires_payment_method"}}}`

func TestStripeChargeSucceeded(t *testing.T) {
	srv, calls := fakeStripe(t, http.StatusOK, `{"id":"pi_ok","object":"payment_intent","status":"succeeded"}`)

	res, err := stripeGateway(t, srv.URL).Charge(context.Background(), card(19.99))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, res.Status)
	assert.Equal(t, "pi_ok", res.ExternalRef)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "1999", call.amount)
	assert.Equal(t, "booking-bk_1", call.idempotencyKey)
	assert.Equal(t, "bk_1", call.bookingID)
}

func TestStripeCardDeclineIsFailedCharge(t *testing.T) {
	srv, _ := fakeStripe(t, http.StatusPaymentRequired, declined)

	res, err := stripeGateway(t, srv.URL).Charge(context.Background(), card(150000))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, res.Status)
	assert.Equal(t, "pi_declined", res.ExternalRef)
}

func TestStripeAPIErrorIsReturned(t *testing.T) {
	srv, _ := fakeStripe(t, http.StatusBadRequest,
		`{"error":{"type":"invalid_request_error","message":"No such PaymentMethod: 'pm_x'"}}`)

	_, err := stripeGateway(t, srv.URL).Charge(context.Background(), card(150000))
	require.Error(t, err)
	assert.ErrorIs(t, err, payment.ErrStripeAPIError)
}

func TestDeclinedCardPaymentIsStored(t *testing.T) {
	srv, _ := fakeStripe(t, http.StatusPaymentRequired, declined)
	db := dbtest.New(t)
	f := dbtest.NewFixtures(t, db)
	s := f.Scenario()
	b := s.Booking(f, models.BookingInProgress)
	log := logger.Discard()
	svc := payment.NewPaymentService(&payment_db.DB{Bun: db}, stripeGateway(t, srv.URL), "idr", &recordingChat{messages: map[string][]string{}},
		&recordingPublisher{}, dispatch.Inline{Timeout: time.Second, Log: log}, log)

	p, err := svc.Pay(context.Background(), models.Actor{ID: s.Customer.ID, Role: models.RoleCustomer}, b.ID,
		models.PaymentRequest{Amount: 150000, Method: models.MethodCreditCard, PaymentMethodID: "pm_card_visa"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, p.Status)
	assert.Equal(t, "pi_declined", p.ExternalRef)

	var stored models.Payment
	require.NoError(t, db.NewSelect().Model(&stored).Where("p.booking_id = ?", b.ID).Scan(context.Background()))
	assert.Equal(t, models.PaymentFailed, stored.Status)
	assert.Nil(t, stored.PaidAt)
}
