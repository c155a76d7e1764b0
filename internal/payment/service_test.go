package payment_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"mekaniku/internal/apperr"
	"mekaniku/internal/audit"
	"mekaniku/internal/database/dbtest"
	"mekaniku/internal/dispatch"
	"mekaniku/internal/logger"
	"mekaniku/internal/models"
	"mekaniku/internal/payment"
	payment_db "mekaniku/internal/payment/db"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Charge(ctx context.Context, req payment.ChargeRequest) (*payment.ChargeResult, error) {
	args := m.Called(ctx, req)
	if res := args.Get(0); res != nil {
		return res.(*payment.ChargeResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type recordingChat struct {
	mu       sync.Mutex
	messages map[string][]string
}

func (c *recordingChat) PostSystemMessage(_ context.Context, chatID, text string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages[chatID] = append(c.messages[chatID], text)
	return "msg", nil
}

type recordingPublisher struct {
	sent []models.Notification
}

func (p *recordingPublisher) Publish(_ context.Context, n models.Notification) error {
	p.sent = append(p.sent, n)
	return nil
}

type testEnv struct {
	db        *bun.DB
	fixtures  *dbtest.Fixtures
	scenario  dbtest.Scenario
	gateway   *MockGateway
	chat      *recordingChat
	publisher *recordingPublisher
	svc       *payment.PaymentService
}

func setup(t *testing.T) *testEnv {
	db := dbtest.New(t)
	f := dbtest.NewFixtures(t, db)
	log := logger.Discard()
	env := &testEnv{
		db:        db,
		fixtures:  f,
		scenario:  f.Scenario(),
		gateway:   new(MockGateway),
		chat:      &recordingChat{messages: map[string][]string{}},
		publisher: &recordingPublisher{},
	}
	env.svc = payment.NewPaymentService(&payment_db.DB{Bun: db}, env.gateway, "idr", env.chat, env.publisher,
		dispatch.Inline{Timeout: time.Second, Log: log}, log)
	return env
}

func (e *testEnv) bookingWithChat(t *testing.T) *models.Booking {
	b := e.scenario.Booking(e.fixtures, models.BookingInProgress)
	_, err := e.db.NewUpdate().Model((*models.Booking)(nil)).Set("chat_id = ?", "chat_1").Where("id = ?", b.ID).Exec(context.Background())
	require.NoError(t, err)
	return b
}

func (e *testEnv) customer() models.Actor {
	return models.Actor{ID: e.scenario.Customer.ID, Role: models.RoleCustomer}
}

var cash = models.PaymentRequest{Amount: 150000, Method: models.MethodCash}

func TestPaySuccess(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	b := env.bookingWithChat(t)

	env.gateway.On("Charge", mock.Anything, mock.MatchedBy(func(req payment.ChargeRequest) bool {
		return req.BookingID == b.ID && req.Amount == 150000 && req.Currency == "idr"
	})).Return(&payment.ChargeResult{Status: models.PaymentPaid, ExternalRef: "PAY_1_abc"}, nil).Once()

	p, err := env.svc.Pay(ctx, env.customer(), b.ID, cash)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, p.Status)
	assert.Equal(t, "PAY_1_abc", p.ExternalRef)
	require.NotNil(t, p.PaidAt)
	env.gateway.AssertExpectations(t)

	logs, err := audit.ForEntity(ctx, env.db, models.EntityPayment, p.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditActionPaymentSuccess, logs[0].Action)
	assert.Equal(t, string(models.PaymentPaid), logs[0].ToStatus)
	assert.EqualValues(t, "CASH", logs[0].Meta["method"])

	count, err := env.db.NewSelect().Model((*models.Notification)(nil)).
		Where("n.to_user_id = ?", env.scenario.Customer.ID).
		Where("n.type = ?", models.NotificationPaymentConfirmed).
		Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.Len(t, env.publisher.sent, 1)
	assert.Equal(t, []string{"Payment of 150000.00 received via CASH"}, env.chat.messages["chat_1"])
}

func TestPayFailureStoresPaymentWithoutSideEffects(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	b := env.bookingWithChat(t)
	env.gateway.On("Charge", mock.Anything, mock.Anything).
		Return(&payment.ChargeResult{Status: models.PaymentFailed, ExternalRef: "PAY_2_x"}, nil)

	p, err := env.svc.Pay(ctx, env.customer(), b.ID, cash)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, p.Status)
	assert.Nil(t, p.PaidAt)

	logs, err := audit.ForEntity(ctx, env.db, models.EntityPayment, p.ID)
	require.NoError(t, err)
	assert.Empty(t, logs)
	assert.Empty(t, env.publisher.sent)
	assert.Empty(t, env.chat.messages)

	_, err = env.svc.Pay(ctx, env.customer(), b.ID, cash)
	assert.True(t, apperr.IsValidation(err))
}

func TestPayRules(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	b := env.scenario.Booking(env.fixtures, models.BookingConfirmed)

	_, err := env.svc.Pay(ctx, models.Actor{ID: env.scenario.Owner.ID, Role: models.RoleWorkshop}, b.ID, cash)
	assert.True(t, apperr.IsValidation(err))

	_, err = env.svc.Pay(ctx, env.customer(), "missing", cash)
	assert.True(t, apperr.IsNotFound(err))

	env.fixtures.Payment(b.ID, 150000, models.PaymentPaid)
	_, err = env.svc.Pay(ctx, env.customer(), b.ID, cash)
	assert.True(t, apperr.IsValidation(err))

	env.gateway.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything)
}

func TestPayGatewayError(t *testing.T) {
	env := setup(t)
	b := env.scenario.Booking(env.fixtures, models.BookingConfirmed)
	env.gateway.On("Charge", mock.Anything, mock.Anything).Return(nil, errors.New("card network down"))

	_, err := env.svc.Pay(context.Background(), env.customer(), b.ID, cash)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))

	exists, err := env.db.NewSelect().Model((*models.Payment)(nil)).Where("p.booking_id = ?", b.ID).Exists(context.Background())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGetPaymentAccess(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	b := env.scenario.Booking(env.fixtures, models.BookingCompleted)
	p := env.fixtures.Payment(b.ID, 150000, models.PaymentPaid)

	got, err := env.svc.GetPayment(ctx, env.customer(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Booking)
	assert.Equal(t, b.ID, got.Booking.ID)

	_, err = env.svc.GetPayment(ctx, models.Actor{ID: env.scenario.Owner.ID, Role: models.RoleWorkshop}, p.ID)
	require.NoError(t, err)

	mechanic := env.fixtures.User(models.RoleWorkshop)
	env.fixtures.Mechanic(mechanic.ID, env.scenario.Workshop.ID)
	_, err = env.svc.GetPayment(ctx, models.Actor{ID: mechanic.ID, Role: models.RoleWorkshop}, p.ID)
	require.NoError(t, err)

	_, err = env.svc.GetPayment(ctx, models.Actor{ID: "someone", Role: models.RoleCustomer}, p.ID)
	assert.True(t, apperr.IsForbidden(err))

	_, err = env.svc.GetPayment(ctx, env.customer(), "missing")
	assert.True(t, apperr.IsNotFound(err))
}

func TestMockGatewayFailureRate(t *testing.T) {
	always := payment.NewMockGateway(1)
	res, err := always.Charge(context.Background(), payment.ChargeRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, res.Status)
	assert.Regexp(t, `^PAY_\d+_[0-9A-Za-z]{9}$`, res.ExternalRef)

	never := payment.NewMockGateway(0)
	res, err = never.Charge(context.Background(), payment.ChargeRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, res.Status)
}
