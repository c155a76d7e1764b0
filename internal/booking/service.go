package booking

import (
	"context"
	"fmt"
	"time"

	"mekaniku/internal/apperr"
	"mekaniku/internal/audit"
	"mekaniku/internal/booking/db"
	"mekaniku/internal/chat"
	"mekaniku/internal/dispatch"
	"mekaniku/internal/logger"
	"mekaniku/internal/models"
	"mekaniku/internal/notification"
	"mekaniku/internal/utils"
)

type DBLayer interface {
	GetBookingForTransition(ctx context.Context, id string) (*models.Booking, error)
	GetBookingSummary(ctx context.Context, id string) (*models.Booking, error)
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	IsWorkshopStaff(ctx context.Context, userID, workshopID string) (bool, error)
	ListBookings(ctx context.Context, q db.ListQuery) ([]models.Booking, int, error)
	GetWorkshop(ctx context.Context, id string) (*models.Workshop, error)
	GetCustomerVehicle(ctx context.Context, id, customerID string) (*models.Vehicle, error)
	GetService(ctx context.Context, id string) (*models.ServiceCatalog, error)
	GetConsultation(ctx context.Context, id string) (*models.Consultation, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	CreateBooking(ctx context.Context, booking *models.Booking, entry audit.Entry, n *models.Notification) error
	ApplyTransition(ctx context.Context, t db.Transition) error
}

// Conversations is the part of the chat service bookings rely on.
type Conversations interface {
	CreateConversation(ctx context.Context, req chat.CreateConversationRequest) (string, error)
	PostSystemMessage(ctx context.Context, chatID, text string) (string, error)
}

// Dispatcher runs post-commit side effects. Both *dispatch.Dispatcher and
// dispatch.Inline satisfy it.
type Dispatcher interface {
	Dispatch(name string, fn dispatch.TaskFunc) bool
}

type BookingService struct {
	DB          DBLayer
	Chat        Conversations
	Notifier    notification.Publisher
	Dispatcher  Dispatcher
	Events      EventWriter
	EventsTopic string
	Logger      *logger.Logger
	now         func() time.Time
}

func NewBookingService(store DBLayer, conversations Conversations, notifier notification.Publisher, dispatcher Dispatcher, log *logger.Logger) *BookingService {
	return &BookingService{
		DB:         store,
		Chat:       conversations,
		Notifier:   notifier,
		Dispatcher: dispatcher,
		Logger:     log,
		now:        time.Now,
	}
}

// WithEvents enables publication of booking status events to topic.
func (s *BookingService) WithEvents(w EventWriter, topic string) *BookingService {
	s.Events = w
	s.EventsTopic = topic
	return s
}

func (s *BookingService) Confirm(ctx context.Context, id string, actor models.Actor) (*models.Booking, error) {
	return s.RequestTransition(ctx, id, actor, models.BookingConfirmed)
}

func (s *BookingService) Start(ctx context.Context, id string, actor models.Actor) (*models.Booking, error) {
	return s.RequestTransition(ctx, id, actor, models.BookingInProgress)
}

func (s *BookingService) Cancel(ctx context.Context, id string, actor models.Actor) (*models.Booking, error) {
	return s.RequestTransition(ctx, id, actor, models.BookingCancelled)
}

func (s *BookingService) MarkNoShow(ctx context.Context, id string, actor models.Actor) (*models.Booking, error) {
	return s.RequestTransition(ctx, id, actor, models.BookingNoShow)
}

// Complete requires a PAID payment in addition to the usual checks.
func (s *BookingService) Complete(ctx context.Context, id string, actor models.Actor) (*models.Booking, error) {
	return s.RequestTransition(ctx, id, actor, models.BookingCompleted)
}

// RequestTransition validates and applies a status change. Checks run in
// order: existence, access, payment gate (COMPLETED only), transition table.
func (s *BookingService) RequestTransition(ctx context.Context, id string, actor models.Actor, target models.BookingStatus) (*models.Booking, error) {
	booking, err := s.DB.GetBookingForTransition(ctx, id)
	if err != nil {
		return nil, err
	}

	if !CanRequestTransition(actor, booking, target) {
		s.Logger.LogSecurity("FORBIDDEN", fmt.Sprintf("user %s may not move booking %s to %s", actor.ID, id, target))
		return nil, apperr.Forbidden("You do not have permission to update this booking")
	}

	if target == models.BookingCompleted && !IsPaymentSatisfied(booking) {
		return nil, apperr.PaymentRequired("Payment must be completed before completing booking")
	}

	from := booking.Status
	if !from.CanTransitionTo(target) {
		return nil, apperr.InvalidTransition(string(from), string(target))
	}

	recipient := booking.CustomerID
	if actor.ID == booking.CustomerID && booking.Workshop != nil {
		recipient = booking.Workshop.OwnerID
	}

	n := &models.Notification{
		ID:       utils.GenerateID(),
		ToUserID: recipient,
		Type:     models.NotificationStatusChanged,
		Payload: map[string]interface{}{
			"bookingId":  booking.ID,
			"fromStatus": string(from),
			"toStatus":   string(target),
		},
		CreatedAt: s.now().UTC(),
	}
	err = s.DB.ApplyTransition(ctx, db.Transition{
		BookingID: booking.ID,
		From:      from,
		To:        target,
		Audit: audit.Entry{
			ActorID:    actor.ID,
			EntityType: models.EntityBooking,
			EntityID:   booking.ID,
			Action:     models.AuditActionStatusUpdate,
			FromStatus: string(from),
			ToStatus:   string(target),
		},
		Notification: n,
	})
	if err != nil {
		return nil, err
	}
	s.Logger.LogBooking("STATUS_UPDATE", booking.ID, fmt.Sprintf("%s -> %s by %s", from, target, actor.ID))

	if booking.ChatID != "" {
		s.postSystemMessage(booking.ChatID, fmt.Sprintf("Booking status changed to %s", target))
	}
	s.publishNotification(*n)
	s.publishEvent(StatusEvent{
		BookingID:  booking.ID,
		WorkshopID: booking.WorkshopID,
		CustomerID: booking.CustomerID,
		ActorID:    actor.ID,
		FromStatus: string(from),
		ToStatus:   string(target),
		OccurredAt: n.CreatedAt,
	})

	return s.DB.GetBookingSummary(ctx, booking.ID)
}

func (s *BookingService) CreateBooking(ctx context.Context, customerID string, req models.CreateBookingRequest) (*models.Booking, error) {
	workshop, err := s.DB.GetWorkshop(ctx, req.WorkshopID)
	if err != nil {
		return nil, err
	}
	if _, err := s.DB.GetCustomerVehicle(ctx, req.VehicleID, customerID); err != nil {
		return nil, err
	}
	service, err := s.DB.GetService(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}
	if service.WorkshopID != workshop.ID {
		return nil, apperr.NotFound("Service")
	}
	customer, err := s.DB.GetUser(ctx, customerID)
	if err != nil {
		return nil, err
	}

	consultationID, chatID, err := s.resolveConsultation(ctx, req.ConsultationID, customerID)
	if err != nil {
		return nil, err
	}
	if chatID == "" {
		chatID, err = s.Chat.CreateConversation(ctx, chat.CreateConversationRequest{
			WorkshopID:     workshop.ID,
			ConsultationID: consultationID,
			Participants:   []string{customerID, workshop.OwnerID},
		})
		if err != nil {
			s.Logger.Warn("CHAT", fmt.Sprintf("Booking for %s proceeds without a conversation: %v", customerID, err))
			chatID = ""
		}
	}

	now := s.now().UTC()
	booking := &models.Booking{
		ID:             utils.GenerateID(),
		CustomerID:     customerID,
		WorkshopID:     workshop.ID,
		VehicleID:      req.VehicleID,
		ServiceID:      service.ID,
		ConsultationID: consultationID,
		ScheduledAt:    req.ScheduledAt.UTC(),
		Notes:          req.Notes,
		Status:         models.BookingPending,
		ChatID:         chatID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	n := &models.Notification{
		ID:       utils.GenerateID(),
		ToUserID: workshop.OwnerID,
		Type:     models.NotificationBookingCreated,
		Payload: map[string]interface{}{
			"bookingId":    booking.ID,
			"customerId":   customerID,
			"customerName": customer.Name,
			"scheduledAt":  booking.ScheduledAt.Format(time.RFC3339),
		},
		CreatedAt: now,
	}
	entry := audit.Entry{
		ActorID:    customerID,
		EntityType: models.EntityBooking,
		EntityID:   booking.ID,
		Action:     models.AuditActionCreate,
		ToStatus:   string(models.BookingPending),
		Meta: map[string]interface{}{
			"workshopId": workshop.ID,
			"serviceId":  service.ID,
		},
	}
	if err := s.DB.CreateBooking(ctx, booking, entry, n); err != nil {
		return nil, err
	}
	s.Logger.LogBooking("CREATE", booking.ID, fmt.Sprintf("customer %s booked %s at workshop %s", customerID, service.Name, workshop.ID))

	if chatID != "" {
		s.postSystemMessage(chatID, fmt.Sprintf("Booking created for %s on %s", service.Name, utils.FormatSchedule(booking.ScheduledAt)))
	}
	s.publishNotification(*n)
	s.publishEvent(StatusEvent{
		BookingID:  booking.ID,
		WorkshopID: booking.WorkshopID,
		CustomerID: customerID,
		ActorID:    customerID,
		ToStatus:   string(models.BookingPending),
		OccurredAt: now,
	})

	return s.DB.GetBooking(ctx, booking.ID)
}

// resolveConsultation returns the consultation id to store on the booking
// and its conversation, if any. Consultations that do not exist or belong to
// another customer are not linked.
func (s *BookingService) resolveConsultation(ctx context.Context, consultationID, customerID string) (string, string, error) {
	if consultationID == "" {
		return "", "", nil
	}
	consultation, err := s.DB.GetConsultation(ctx, consultationID)
	if apperr.IsNotFound(err) {
		return "", "", nil
	}
	if err != nil {
		return "", "", err
	}
	if consultation.CustomerID != customerID {
		return "", "", nil
	}
	return consultation.ID, consultation.ChatID, nil
}

// GetBooking returns a booking to its customer, the workshop's owner or
// mechanics, and admins.
func (s *BookingService) GetBooking(ctx context.Context, actor models.Actor, id string) (*models.Booking, error) {
	booking, err := s.DB.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if CanActOnBooking(actor, booking) {
		return booking, nil
	}
	if actor.Role == models.RoleWorkshop {
		staff, err := s.DB.IsWorkshopStaff(ctx, actor.ID, booking.WorkshopID)
		if err != nil {
			return nil, err
		}
		if staff {
			return booking, nil
		}
	}
	s.Logger.LogSecurity("FORBIDDEN", fmt.Sprintf("user %s may not read booking %s", actor.ID, id))
	return nil, apperr.Forbidden("You do not have permission to view this booking")
}

// ListBookings scopes results by role: customers see their own bookings,
// workshop staff see their workshops' bookings, admins see everything.
func (s *BookingService) ListBookings(ctx context.Context, actor models.Actor, filter models.BookingFilter, page utils.Page) ([]models.Booking, utils.PageMeta, error) {
	q := db.ListQuery{
		Filter: filter,
		Limit:  page.Limit,
		Offset: page.Offset(),
	}
	switch actor.Role {
	case models.RoleCustomer:
		q.CustomerID = actor.ID
	case models.RoleWorkshop:
		q.StaffUserID = actor.ID
	case models.RoleAdmin:
	default:
		return nil, utils.PageMeta{}, apperr.Forbidden("Unknown role")
	}

	bookings, total, err := s.DB.ListBookings(ctx, q)
	if err != nil {
		return nil, utils.PageMeta{}, err
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	return bookings, page.Meta(total), nil
}

func (s *BookingService) postSystemMessage(chatID, text string) {
	s.Dispatcher.Dispatch("chat.system_message", func(ctx context.Context) error {
		_, err := s.Chat.PostSystemMessage(ctx, chatID, text)
		return err
	})
}

func (s *BookingService) publishNotification(n models.Notification) {
	if s.Notifier == nil {
		return
	}
	s.Dispatcher.Dispatch("notification.publish", func(ctx context.Context) error {
		return s.Notifier.Publish(ctx, n)
	})
}

func (s *BookingService) publishEvent(ev StatusEvent) {
	if s.Events == nil || s.EventsTopic == "" {
		return
	}
	s.Dispatcher.Dispatch("booking.status_event", func(ctx context.Context) error {
		return s.Events.Publish(ctx, s.EventsTopic, ev.BookingID, ev)
	})
}
