package chat

import (
	"context"
	"fmt"
	"time"

	"mekaniku/internal/apperr"
	"mekaniku/internal/logger"
	"mekaniku/internal/models"
	"mekaniku/internal/utils"
)

const (
	DefaultMessageLimit = 50
	MaxMessageLimit     = 200
	DefaultTypingTTL    = 3 * time.Second
)

type ChatService struct {
	Store     Store
	TypingTTL time.Duration
	Logger    *logger.Logger
	now       func() time.Time
}

func NewChatService(store Store, typingTTL time.Duration, log *logger.Logger) *ChatService {
	if typingTTL <= 0 {
		typingTTL = DefaultTypingTTL
	}
	return &ChatService{Store: store, TypingTTL: typingTTL, Logger: log, now: time.Now}
}

// CreateConversation stores a new conversation and returns its id.
func (s *ChatService) CreateConversation(ctx context.Context, req CreateConversationRequest) (string, error) {
	if len(req.Participants) < 2 {
		return "", apperr.Validation("A conversation needs at least two participants", nil)
	}

	conv := Conversation{
		ID:             utils.GenerateChatID(),
		WorkshopID:     req.WorkshopID,
		BookingID:      req.BookingID,
		ConsultationID: req.ConsultationID,
		Participants:   dedupe(req.Participants),
		CreatedAt:      s.now().UnixMilli(),
	}
	if err := s.Store.CreateConversation(ctx, conv); err != nil {
		return "", err
	}
	s.Logger.Info("CHAT", fmt.Sprintf("Conversation %s created for workshop %s", conv.ID, conv.WorkshopID))
	return conv.ID, nil
}

// GetConversation returns the conversation to members and admins.
func (s *ChatService) GetConversation(ctx context.Context, actor models.Actor, chatID string) (*Conversation, error) {
	conv, err := s.Store.GetConversation(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, actor, chatID, true); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *ChatService) ListMessages(ctx context.Context, actor models.Actor, chatID string, limit int) ([]Message, error) {
	if _, err := s.Store.GetConversation(ctx, chatID); err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, actor, chatID, true); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = DefaultMessageLimit
	}
	if limit > MaxMessageLimit {
		limit = MaxMessageLimit
	}
	return s.Store.ListMessages(ctx, chatID, limit)
}

// SendMessage posts a message as actor. Only members may post.
func (s *ChatService) SendMessage(ctx context.Context, actor models.Actor, chatID string, req SendMessageRequest) (string, error) {
	if _, err := s.Store.GetConversation(ctx, chatID); err != nil {
		return "", err
	}
	if err := s.requireMember(ctx, actor, chatID, false); err != nil {
		return "", err
	}

	msgType := req.Type
	if msgType == "" {
		msgType = MessageText
	}
	if msgType != MessageText && msgType != MessageImage {
		return "", apperr.Validation("Message type must be TEXT or IMAGE", nil)
	}
	if req.Text == "" && len(req.Attachments) == 0 {
		return "", apperr.Validation("A message needs text or attachments", nil)
	}

	msg := Message{
		ID:          utils.GenerateMessageID(),
		SenderID:    actor.ID,
		SenderRole:  string(actor.Role),
		Type:        msgType,
		Text:        req.Text,
		Attachments: nonNil(req.Attachments),
		CreatedAt:   s.now().UnixMilli(),
	}
	if err := s.Store.AppendMessage(ctx, chatID, msg); err != nil {
		return "", err
	}
	return msg.ID, nil
}

// PostSystemMessage appends a SYSTEM message without a membership check.
func (s *ChatService) PostSystemMessage(ctx context.Context, chatID, text string) (string, error) {
	msg := Message{
		ID:          utils.GenerateMessageID(),
		SenderID:    SystemSender,
		SenderRole:  string(MessageSystem),
		Type:        MessageSystem,
		Text:        text,
		Attachments: []string{},
		CreatedAt:   s.now().UnixMilli(),
	}
	if err := s.Store.AppendMessage(ctx, chatID, msg); err != nil {
		return "", err
	}
	return msg.ID, nil
}

// AddMember adds userID on behalf of actor, who must be a member or an admin.
func (s *ChatService) AddMember(ctx context.Context, actor models.Actor, chatID, userID string) error {
	if err := s.requireManager(ctx, actor, chatID); err != nil {
		return err
	}
	if err := s.Store.AddMember(ctx, chatID, userID); err != nil {
		return err
	}
	_, err := s.PostSystemMessage(ctx, chatID, fmt.Sprintf("User %s joined the chat", userID))
	return err
}

func (s *ChatService) RemoveMember(ctx context.Context, actor models.Actor, chatID, userID string) error {
	if err := s.requireManager(ctx, actor, chatID); err != nil {
		return err
	}
	if err := s.Store.RemoveMember(ctx, chatID, userID); err != nil {
		return err
	}
	_, err := s.PostSystemMessage(ctx, chatID, fmt.Sprintf("User %s left the chat", userID))
	return err
}

// SetTyping flags actor as typing; the flag expires after TypingTTL.
func (s *ChatService) SetTyping(ctx context.Context, actor models.Actor, chatID string, typing bool) error {
	if err := s.requireMember(ctx, actor, chatID, false); err != nil {
		return err
	}
	return s.Store.SetTyping(ctx, chatID, actor.ID, typing, s.TypingTTL)
}

func (s *ChatService) SetPresence(ctx context.Context, userID string, online bool) error {
	return s.Store.SetPresence(ctx, userID, Presence{Online: online, LastSeen: s.now().UnixMilli()})
}

func (s *ChatService) requireManager(ctx context.Context, actor models.Actor, chatID string) error {
	if _, err := s.Store.GetConversation(ctx, chatID); err != nil {
		return err
	}
	return s.requireMember(ctx, actor, chatID, true)
}

func (s *ChatService) requireMember(ctx context.Context, actor models.Actor, chatID string, adminBypass bool) error {
	if adminBypass && actor.IsAdmin() {
		return nil
	}
	ok, err := s.Store.IsMember(ctx, chatID, actor.ID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbidden("You are not a member of this chat")
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
