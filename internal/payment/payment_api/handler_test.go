package payment_api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mekaniku/internal/auth"
	"mekaniku/internal/database/dbtest"
	"mekaniku/internal/dispatch"
	"mekaniku/internal/logger"
	"mekaniku/internal/models"
	"mekaniku/internal/payment"
	payment_db "mekaniku/internal/payment/db"
)

type nopChat struct{}

func (nopChat) PostSystemMessage(context.Context, string, string) (string, error) { return "msg", nil }

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, models.Notification) error { return nil }

func setupRouter(t *testing.T) (http.Handler, *dbtest.Fixtures, dbtest.Scenario) {
	t.Helper()
	db := dbtest.New(t)
	f := dbtest.NewFixtures(t, db)
	log := logger.Discard()
	svc := payment.NewPaymentService(&payment_db.DB{Bun: db}, payment.NewMockGateway(0), "idr", nopChat{}, nopPublisher{},
		dispatch.Inline{Timeout: time.Second, Log: log}, log)

	r := chi.NewRouter()
	NewHandler(svc, log).RegisterRoutes(r)
	return r, f, f.Scenario()
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

func TestPayAndReadBack(t *testing.T) {
	r, f, s := setupRouter(t)
	b := s.Booking(f, models.BookingInProgress)
	customer := &models.Actor{ID: s.Customer.ID, Role: models.RoleCustomer}

	rec := do(r, http.MethodPost, "/bookings/"+b.ID+"/pay", `{"amount":150000,"method":"CASH"}`, customer)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Success bool           `json:"success"`
		Data    models.Payment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.True(t, created.Success)
	assert.Equal(t, models.PaymentPaid, created.Data.Status)

	owner := &models.Actor{ID: s.Owner.ID, Role: models.RoleWorkshop, WorkshopID: s.Workshop.ID}
	rec = do(r, http.MethodGet, "/payments/"+created.Data.ID, "", owner)
	assert.Equal(t, http.StatusOK, rec.Code)

	stranger := &models.Actor{ID: f.User(models.RoleCustomer).ID, Role: models.RoleCustomer}
	rec = do(r, http.MethodGet, "/payments/"+created.Data.ID, "", stranger)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPayRejectsNonCustomer(t *testing.T) {
	r, f, s := setupRouter(t)
	b := s.Booking(f, models.BookingInProgress)
	owner := &models.Actor{ID: s.Owner.ID, Role: models.RoleWorkshop, WorkshopID: s.Workshop.ID}

	rec := do(r, http.MethodPost, "/bookings/"+b.ID+"/pay", `{"amount":150000,"method":"CASH"}`, owner)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Only the customer can make payment")

	rec = do(r, http.MethodPost, "/bookings/"+b.ID+"/pay", `{"amount":150000,"method":"CHEQUE"}`, owner)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}
