package notification

import (
	"context"
	"fmt"
	"time"

	"mekaniku/internal/logger"
	"mekaniku/internal/models"
	"mekaniku/internal/utils"
)

type DBLayer interface {
	ListForUser(ctx context.Context, userID string, limit, offset int) ([]models.Notification, int, error)
	GetForUser(ctx context.Context, id, userID string) (*models.Notification, error)
	MarkRead(ctx context.Context, id string, at time.Time) error
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error)
}

type NotificationService struct {
	DB     DBLayer
	Logger *logger.Logger
	now    func() time.Time
}

func NewNotificationService(db DBLayer, log *logger.Logger) *NotificationService {
	return &NotificationService{DB: db, Logger: log, now: time.Now}
}

// List returns the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, page utils.Page) ([]models.Notification, utils.PageMeta, error) {
	items, total, err := s.DB.ListForUser(ctx, userID, page.Limit, page.Offset())
	if err != nil {
		return nil, utils.PageMeta{}, fmt.Errorf("list notifications: %w", err)
	}
	if items == nil {
		items = []models.Notification{}
	}
	return items, page.Meta(total), nil
}

// MarkRead stamps read_at on a notification owned by userID. Notifications
// belonging to someone else are reported as not found.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) (*models.Notification, error) {
	n, err := s.DB.GetForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	at := s.now().UTC()
	if err := s.DB.MarkRead(ctx, id, at); err != nil {
		return nil, fmt.Errorf("mark notification %s read: %w", id, err)
	}
	n.ReadAt = &at
	return n, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	count, err := s.DB.MarkAllRead(ctx, userID, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	s.Logger.Debug("NOTIFICATION", fmt.Sprintf("Marked %d notifications read for %s", count, userID))
	return count, nil
}
