package review

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"mekaniku/internal/apperr"
	"mekaniku/internal/logger"
	"mekaniku/internal/models"
	"mekaniku/internal/utils"
)

type Service struct {
	db     *bun.DB
	logger *logger.Logger
}

func NewService(db *bun.DB, log *logger.Logger) *Service {
	return &Service{db: db, logger: log}
}

// Create records the customer's rating of a completed booking. Each booking
// takes one review.
func (s *Service) Create(ctx context.Context, customerID, bookingID string, req models.CreateReviewRequest) (*models.Review, error) {
	booking := new(models.Booking)
	err := s.db.NewSelect().
		Model(booking).
		Relation("Review").
		Where("b.id = ?", bookingID).
		Where("b.deleted_at IS NULL").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, apperr.FromDB(err, "Booking")
	}

	switch {
	case booking.CustomerID != customerID:
		return nil, apperr.Validation("You can only review your own bookings", nil)
	case booking.Status != models.BookingCompleted:
		return nil, apperr.Validation("Can only review completed bookings", nil)
	case booking.Review != nil:
		return nil, apperr.Validation("Review already exists for this booking", nil)
	}

	review := &models.Review{
		ID:         utils.GenerateID(),
		BookingID:  booking.ID,
		CustomerID: customerID,
		Rating:     req.Rating,
		Comment:    req.Comment,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(review).Exec(ctx); err != nil {
		return nil, apperr.FromDB(fmt.Errorf("insert review: %w", err), "Review")
	}
	s.logger.Info("API", fmt.Sprintf("Review %d/5 for booking %s", req.Rating, booking.ID))
	return review, nil
}
