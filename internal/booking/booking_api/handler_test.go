package booking_api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mekaniku/internal/apperr"
	"mekaniku/internal/auth"
	"mekaniku/internal/booking"
	booking_db "mekaniku/internal/booking/db"
	"mekaniku/internal/chat"
	"mekaniku/internal/database/dbtest"
	"mekaniku/internal/dispatch"
	"mekaniku/internal/logger"
	"mekaniku/internal/models"
)

type nopChat struct{}

func (nopChat) CreateConversation(context.Context, chat.CreateConversationRequest) (string, error) {
	return "chat_test", nil
}

func (nopChat) PostSystemMessage(context.Context, string, string) (string, error) {
	return "msg_test", nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, models.Notification) error { return nil }

// racingDB loses every optimistic status update.
type racingDB struct {
	*booking_db.DB
}

func (racingDB) ApplyTransition(context.Context, booking_db.Transition) error {
	return apperr.Conflict("Booking status was changed by another request")
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Message string          `json:"message"`
		Code    string          `json:"code"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
	Meta map[string]any `json:"meta"`
}

func router(store booking.DBLayer) http.Handler {
	log := logger.Discard()
	svc := booking.NewBookingService(store, nopChat{}, nopPublisher{}, dispatch.Inline{Timeout: time.Second, Log: log}, log)
	r := chi.NewRouter()
	NewHandler(svc, log).RegisterRoutes(r)
	return r
}

func setupRouter(t *testing.T) (http.Handler, *dbtest.Fixtures, dbtest.Scenario) {
	t.Helper()
	db := dbtest.New(t)
	f := dbtest.NewFixtures(t, db)
	return router(&booking_db.DB{Bun: db}), f, f.Scenario()
}

func do(h http.Handler, method, path, body string, actor *models.Actor) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req = req.WithContext(auth.WithActor(req.Context(), *actor))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func customerOf(s dbtest.Scenario) *models.Actor {
	return &models.Actor{ID: s.Customer.ID, Role: models.RoleCustomer}
}

func ownerOf(s dbtest.Scenario) *models.Actor {
	return &models.Actor{ID: s.Owner.ID, Role: models.RoleWorkshop, WorkshopID: s.Workshop.ID}
}

func TestTransitionRoutes(t *testing.T) {
	cases := []struct {
		route string
		from  models.BookingStatus
		to    models.BookingStatus
		paid  bool
	}{
		{"confirm", models.BookingPending, models.BookingConfirmed, false},
		{"start", models.BookingConfirmed, models.BookingInProgress, false},
		{"complete", models.BookingInProgress, models.BookingCompleted, true},
		{"cancel", models.BookingConfirmed, models.BookingCancelled, false},
		{"no-show", models.BookingConfirmed, models.BookingNoShow, false},
	}
	for _, tc := range cases {
		t.Run(tc.route, func(t *testing.T) {
			r, f, s := setupRouter(t)
			b := s.Booking(f, tc.from)
			if tc.paid {
				f.Payment(b.ID, s.Service.BasePrice, models.PaymentPaid)
			}

			rec := do(r, http.MethodPost, "/bookings/"+b.ID+"/"+tc.route, "", ownerOf(s))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			body := decode(t, rec)
			assert.True(t, body.Success)
			var got models.Booking
			require.NoError(t, json.Unmarshal(body.Data, &got))
			assert.Equal(t, tc.to, got.Status)
		})
	}
}

func TestTransitionErrorsUseEnvelope(t *testing.T) {
	t.Run("unknown booking", func(t *testing.T) {
		r, _, s := setupRouter(t)
		rec := do(r, http.MethodPost, "/bookings/missing/confirm", "", ownerOf(s))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		body := decode(t, rec)
		assert.False(t, body.Success)
		assert.Equal(t, "NOT_FOUND", body.Error.Code)
	})

	t.Run("customer cannot confirm", func(t *testing.T) {
		r, f, s := setupRouter(t)
		b := s.Booking(f, models.BookingPending)
		rec := do(r, http.MethodPost, "/bookings/"+b.ID+"/confirm", "", customerOf(s))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "FORBIDDEN", decode(t, rec).Error.Code)
	})

	t.Run("stranger cannot cancel", func(t *testing.T) {
		r, f, s := setupRouter(t)
		b := s.Booking(f, models.BookingPending)
		stranger := &models.Actor{ID: f.User(models.RoleCustomer).ID, Role: models.RoleCustomer}
		rec := do(r, http.MethodPost, "/bookings/"+b.ID+"/cancel", "", stranger)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("complete without payment", func(t *testing.T) {
		r, f, s := setupRouter(t)
		b := s.Booking(f, models.BookingInProgress)
		f.Payment(b.ID, s.Service.BasePrice, models.PaymentPending)
		rec := do(r, http.MethodPost, "/bookings/"+b.ID+"/complete", "", ownerOf(s))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "PAYMENT_REQUIRED", decode(t, rec).Error.Code)
	})

	t.Run("invalid transition", func(t *testing.T) {
		r, f, s := setupRouter(t)
		b := s.Booking(f, models.BookingPending)
		rec := do(r, http.MethodPost, "/bookings/"+b.ID+"/start", "", ownerOf(s))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := decode(t, rec)
		require.NotNil(t, body.Error)
		assert.Equal(t, "INVALID_TRANSITION", body.Error.Code)
		var details map[string]string
		require.NoError(t, json.Unmarshal(body.Error.Details, &details))
		assert.Equal(t, "PENDING", details["fromStatus"])
		assert.Equal(t, "IN_PROGRESS", details["toStatus"])
	})

	t.Run("concurrent update", func(t *testing.T) {
		db := dbtest.New(t)
		f := dbtest.NewFixtures(t, db)
		s := f.Scenario()
		b := s.Booking(f, models.BookingPending)
		r := router(racingDB{&booking_db.DB{Bun: db}})

		rec := do(r, http.MethodPost, "/bookings/"+b.ID+"/confirm", "", ownerOf(s))
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "CONFLICT", decode(t, rec).Error.Code)
	})
}

func TestGetBookingRoute(t *testing.T) {
	r, f, s := setupRouter(t)
	b := s.Booking(f, models.BookingPending)

	rec := do(r, http.MethodGet, "/bookings/"+b.ID, "", customerOf(s))
	require.Equal(t, http.StatusOK, rec.Code)

	stranger := &models.Actor{ID: f.User(models.RoleCustomer).ID, Role: models.RoleCustomer}
	rec = do(r, http.MethodGet, "/bookings/"+b.ID, "", stranger)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", decode(t, rec).Error.Code)

	rec = do(r, http.MethodGet, "/bookings/missing", "", customerOf(s))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateBookingIsCustomerOnly(t *testing.T) {
	r, _, s := setupRouter(t)
	payload := fmt.Sprintf(`{"workshopId":%q,"vehicleId":%q,"serviceId":%q,"scheduledAt":%q}`,
		s.Workshop.ID, s.Vehicle.ID, s.Service.ID, time.Now().Add(48*time.Hour).UTC().Format(time.RFC3339))

	rec := do(r, http.MethodPost, "/bookings", payload, ownerOf(s))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(r, http.MethodPost, "/bookings", payload, customerOf(s))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var got models.Booking
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &got))
	assert.Equal(t, models.BookingPending, got.Status)
	assert.Equal(t, s.Customer.ID, got.CustomerID)
}

func TestCreateBookingValidatesBody(t *testing.T) {
	r, _, s := setupRouter(t)
	rec := do(r, http.MethodPost, "/bookings", `{"workshopId":"w"}`, customerOf(s))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, rec).Error.Code)
}

func TestListBookingsRoute(t *testing.T) {
	r, f, s := setupRouter(t)
	s.Booking(f, models.BookingPending)
	s.Booking(f, models.BookingConfirmed)
	s.Booking(f, models.BookingConfirmed)

	rec := do(r, http.MethodGet, "/bookings?status=CONFIRMED&limit=1", "", ownerOf(s))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	var got []models.Booking
	require.NoError(t, json.Unmarshal(body.Data, &got))
	assert.Len(t, got, 1)
	assert.EqualValues(t, 2, body.Meta["total"])
	assert.EqualValues(t, 2, body.Meta["totalPages"])
	assert.Equal(t, true, body.Meta["hasMore"])

	rec = do(r, http.MethodGet, "/bookings?status=DONE", "", ownerOf(s))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, rec).Error.Code)
}
