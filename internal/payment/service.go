package payment

import (
	"context"
	"fmt"
	"time"

	"mekaniku/internal/apperr"
	"mekaniku/internal/audit"
	"mekaniku/internal/dispatch"
	"mekaniku/internal/logger"
	"mekaniku/internal/models"
	"mekaniku/internal/notification"
	"mekaniku/internal/utils"
)

type DBLayer interface {
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	CreatePayment(ctx context.Context, p *models.Payment, entry *audit.Entry, n *models.Notification) error
	GetPayment(ctx context.Context, id string) (*models.Payment, error)
	IsWorkshopStaff(ctx context.Context, userID, workshopID string) (bool, error)
}

type SystemMessenger interface {
	PostSystemMessage(ctx context.Context, chatID, text string) (string, error)
}

type Dispatcher interface {
	Dispatch(name string, fn dispatch.TaskFunc) bool
}

type PaymentService struct {
	DB         DBLayer
	Gateway    Gateway
	Currency   string
	Chat       SystemMessenger
	Notifier   notification.Publisher
	Dispatcher Dispatcher
	Logger     *logger.Logger
}

func NewPaymentService(store DBLayer, gateway Gateway, currency string, messenger SystemMessenger, notifier notification.Publisher, dispatcher Dispatcher, log *logger.Logger) *PaymentService {
	return &PaymentService{
		DB:         store,
		Gateway:    gateway,
		Currency:   currency,
		Chat:       messenger,
		Notifier:   notifier,
		Dispatcher: dispatcher,
		Logger:     log,
	}
}

// Pay charges the booking once. Failed charges are stored too; a booking
// never gets a second payment.
func (s *PaymentService) Pay(ctx context.Context, actor models.Actor, bookingID string, req models.PaymentRequest) (*models.Payment, error) {
	booking, err := s.DB.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.CustomerID != actor.ID {
		return nil, apperr.Validation("Only the customer can make payment", nil)
	}
	if booking.Payment != nil {
		return nil, apperr.Validation("Payment already exists for this booking", nil)
	}

	paymentID := utils.GenerateID()
	result, err := s.Gateway.Charge(ctx, ChargeRequest{
		PaymentID:       paymentID,
		BookingID:       booking.ID,
		Amount:          req.Amount,
		Currency:        s.Currency,
		Method:          req.Method,
		PaymentMethodID: req.PaymentMethodID,
	})
	if err != nil {
		if _, ok := apperr.As(err); ok {
			return nil, err
		}
		return nil, apperr.Internal(fmt.Errorf("charge booking %s: %w", booking.ID, err))
	}

	now := time.Now().UTC()
	payment := &models.Payment{
		ID:          paymentID,
		BookingID:   booking.ID,
		Amount:      req.Amount,
		Method:      req.Method,
		Status:      result.Status,
		ExternalRef: result.ExternalRef,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var entry *audit.Entry
	var n *models.Notification
	paid := result.Status == models.PaymentPaid
	if paid {
		payment.PaidAt = &now
		entry = &audit.Entry{
			ActorID:    actor.ID,
			EntityType: models.EntityPayment,
			EntityID:   payment.ID,
			Action:     models.AuditActionPaymentSuccess,
			ToStatus:   string(models.PaymentPaid),
			Meta: map[string]interface{}{
				"amount": req.Amount,
				"method": string(req.Method),
			},
		}
		n = &models.Notification{
			ID:       utils.GenerateID(),
			ToUserID: booking.CustomerID,
			Type:     models.NotificationPaymentConfirmed,
			Payload: map[string]interface{}{
				"bookingId":   booking.ID,
				"amount":      req.Amount,
				"externalRef": result.ExternalRef,
			},
			CreatedAt: now,
		}
	}

	if err := s.DB.CreatePayment(ctx, payment, entry, n); err != nil {
		return nil, err
	}
	s.Logger.Info("PAYMENT", fmt.Sprintf("Payment %s for booking %s: %s (%s)", payment.ID, booking.ID, payment.Status, payment.ExternalRef))

	if paid {
		if booking.ChatID != "" {
			text := fmt.Sprintf("Payment of %s received via %s", utils.FormatAmount(req.Amount), req.Method)
			s.Dispatcher.Dispatch("chat.system_message", func(ctx context.Context) error {
				_, err := s.Chat.PostSystemMessage(ctx, booking.ChatID, text)
				return err
			})
		}
		if s.Notifier != nil {
			s.Dispatcher.Dispatch("notification.publish", func(ctx context.Context) error {
				return s.Notifier.Publish(ctx, *n)
			})
		}
	}
	return payment, nil
}

// GetPayment is visible to the paying customer, the workshop's staff and admins.
func (s *PaymentService) GetPayment(ctx context.Context, actor models.Actor, id string) (*models.Payment, error) {
	payment, err := s.DB.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleAdmin {
		return payment, nil
	}
	if payment.Booking == nil {
		return nil, apperr.Forbidden("You do not have access to this payment")
	}
	if actor.ID == payment.Booking.CustomerID {
		return payment, nil
	}
	if w := payment.Booking.Workshop; w != nil && w.OwnerID == actor.ID {
		return payment, nil
	}
	staff, err := s.DB.IsWorkshopStaff(ctx, actor.ID, payment.Booking.WorkshopID)
	if err != nil {
		return nil, err
	}
	if !staff {
		return nil, apperr.Forbidden("You do not have access to this payment")
	}
	return payment, nil
}
