package consultation

import (
	"context"
	"fmt"
	"time"

	"mekaniku/internal/apperr"
	"mekaniku/internal/chat"
	"mekaniku/internal/consultation/db"
	"mekaniku/internal/dispatch"
	"mekaniku/internal/logger"
	"mekaniku/internal/models"
	"mekaniku/internal/notification"
	"mekaniku/internal/utils"
)

type DBLayer interface {
	GetWorkshop(ctx context.Context, id string) (*models.Workshop, error)
	IsWorkshopStaff(ctx context.Context, userID, workshopID string) (bool, error)
	CreateConsultation(ctx context.Context, c *models.Consultation, n *models.Notification) error
	GetConsultation(ctx context.Context, id string) (*models.Consultation, error)
	ListConsultations(ctx context.Context, q db.ListQuery) ([]models.Consultation, int, error)
	CloseConsultation(ctx context.Context, id string) (bool, error)
}

type Conversations interface {
	CreateConversation(ctx context.Context, req chat.CreateConversationRequest) (string, error)
	PostSystemMessage(ctx context.Context, chatID, text string) (string, error)
}

type Dispatcher interface {
	Dispatch(name string, fn dispatch.TaskFunc) bool
}

type ConsultationService struct {
	DB         DBLayer
	Chat       Conversations
	Notifier   notification.Publisher
	Dispatcher Dispatcher
	Logger     *logger.Logger
}

func NewConsultationService(store DBLayer, conversations Conversations, notifier notification.Publisher, dispatcher Dispatcher, log *logger.Logger) *ConsultationService {
	return &ConsultationService{
		DB:         store,
		Chat:       conversations,
		Notifier:   notifier,
		Dispatcher: dispatcher,
		Logger:     log,
	}
}

// CreateConsultation opens a consultation and a conversation between the
// customer and the workshop owner.
func (s *ConsultationService) CreateConsultation(ctx context.Context, customerID string, req models.CreateConsultationRequest) (*models.Consultation, error) {
	workshop, err := s.DB.GetWorkshop(ctx, req.WorkshopID)
	if err != nil {
		return nil, err
	}

	id := utils.GenerateID()
	chatID, err := s.Chat.CreateConversation(ctx, chat.CreateConversationRequest{
		WorkshopID:     workshop.ID,
		ConsultationID: id,
		Participants:   []string{customerID, workshop.OwnerID},
	})
	if err != nil {
		s.Logger.Warn("CHAT", fmt.Sprintf("Consultation %s proceeds without a conversation: %v", id, err))
		chatID = ""
	}

	now := time.Now().UTC()
	consultation := &models.Consultation{
		ID:         id,
		CustomerID: customerID,
		WorkshopID: workshop.ID,
		Message:    req.Message,
		Status:     models.ConsultationOpen,
		ChatID:     chatID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	n := &models.Notification{
		ID:       utils.GenerateID(),
		ToUserID: workshop.OwnerID,
		Type:     models.NotificationConsultationCreated,
		Payload: map[string]interface{}{
			"consultationId": id,
			"customerId":     customerID,
			"chatId":         chatID,
		},
		CreatedAt: now,
	}
	if err := s.DB.CreateConsultation(ctx, consultation, n); err != nil {
		return nil, err
	}
	s.Logger.Info("API", fmt.Sprintf("Consultation %s opened by %s with workshop %s", id, customerID, workshop.ID))

	if chatID != "" {
		s.postSystemMessages(chatID, "Consultation started", "Customer: "+req.Message)
	}
	if s.Notifier != nil {
		s.Dispatcher.Dispatch("notification.publish", func(ctx context.Context) error {
			return s.Notifier.Publish(ctx, *n)
		})
	}
	return consultation, nil
}

func (s *ConsultationService) ListConsultations(ctx context.Context, actor models.Actor, status models.ConsultationStatus, page utils.Page) ([]models.Consultation, utils.PageMeta, error) {
	q := db.ListQuery{Status: status, Limit: page.Limit, Offset: page.Offset()}
	switch actor.Role {
	case models.RoleCustomer:
		q.CustomerID = actor.ID
	case models.RoleWorkshop:
		q.StaffUserID = actor.ID
	case models.RoleAdmin:
	default:
		return nil, utils.PageMeta{}, apperr.Forbidden("Unknown role")
	}

	consultations, total, err := s.DB.ListConsultations(ctx, q)
	if err != nil {
		return nil, utils.PageMeta{}, err
	}
	if consultations == nil {
		consultations = []models.Consultation{}
	}
	return consultations, page.Meta(total), nil
}

// GetConsultation is visible to its customer, the workshop's staff and admins.
func (s *ConsultationService) GetConsultation(ctx context.Context, actor models.Actor, id string) (*models.Consultation, error) {
	consultation, err := s.DB.GetConsultation(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case actor.Role == models.RoleAdmin, actor.ID == consultation.CustomerID:
		return consultation, nil
	case actor.Role == models.RoleWorkshop:
		staff, err := s.DB.IsWorkshopStaff(ctx, actor.ID, consultation.WorkshopID)
		if err != nil {
			return nil, err
		}
		if staff {
			return consultation, nil
		}
	}
	return nil, apperr.Forbidden("You do not have access to this consultation")
}

// CloseConsultation may be called by the customer, the workshop owner or an admin.
func (s *ConsultationService) CloseConsultation(ctx context.Context, actor models.Actor, id string) (*models.Consultation, error) {
	consultation, err := s.DB.GetConsultation(ctx, id)
	if err != nil {
		return nil, err
	}
	isOwner := consultation.Workshop != nil && consultation.Workshop.OwnerID == actor.ID
	if actor.Role != models.RoleAdmin && actor.ID != consultation.CustomerID && !isOwner {
		return nil, apperr.Forbidden("You do not have permission to close this consultation")
	}

	closed, err := s.DB.CloseConsultation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !closed {
		return nil, apperr.Conflict("Consultation is already closed")
	}

	if consultation.ChatID != "" {
		s.postSystemMessages(consultation.ChatID, "Consultation closed")
	}
	return s.DB.GetConsultation(ctx, id)
}

func (s *ConsultationService) postSystemMessages(chatID string, texts ...string) {
	s.Dispatcher.Dispatch("chat.system_message", func(ctx context.Context) error {
		for _, text := range texts {
			if _, err := s.Chat.PostSystemMessage(ctx, chatID, text); err != nil {
				return err
			}
		}
		return nil
	})
}
