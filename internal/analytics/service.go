package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/uptrace/bun"

	"mekaniku/internal/apperr"
	"mekaniku/internal/models"
)

// RevenueWindow is how far back the daily revenue series reaches.
const RevenueWindow = 30 * 24 * time.Hour

// Service computes workshop dashboard metrics straight from the database.
type Service struct {
	db  *bun.DB
	now func() time.Time
}

func NewService(db *bun.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// WorkshopAnalytics is the dashboard of one workshop.
type WorkshopAnalytics struct {
	WorkshopID       string                       `json:"workshopId"`
	TotalBookings    int                          `json:"totalBookings"`
	BookingsByStatus map[models.BookingStatus]int `json:"bookingsByStatus"`
	TotalRevenue     float64                      `json:"totalRevenue"`
	AverageRating    float64                      `json:"averageRating"`
	ReviewCount      int                          `json:"reviewCount"`
	UpcomingBookings int                          `json:"upcomingBookings"`
	DailyRevenue     []DailyRevenue               `json:"dailyRevenue"`
}

// DailyRevenue is the PAID revenue of one UTC day.
type DailyRevenue struct {
	Date     string  `json:"date"`
	Revenue  float64 `json:"revenue"`
	Payments int     `json:"payments"`
}

func (s *Service) GetWorkshopAnalytics(ctx context.Context, workshopID string) (*WorkshopAnalytics, error) {
	exists, err := s.db.NewSelect().
		Model((*models.Workshop)(nil)).
		Where("w.id = ?", workshopID).
		Where("w.deleted_at IS NULL").
		Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperr.NotFound("Workshop")
	}

	result := &WorkshopAnalytics{
		WorkshopID:       workshopID,
		BookingsByStatus: make(map[models.BookingStatus]int),
		DailyRevenue:     []DailyRevenue{},
	}
	for _, status := range models.AllBookingStatuses() {
		result.BookingsByStatus[status] = 0
	}

	type statusCountRaw struct {
		Status models.BookingStatus `bun:"status"`
		Count  int                  `bun:"count"`
	}
	var counts []statusCountRaw
	err = s.db.NewRaw(`
		SELECT b.status AS status, COUNT(*) AS count
		FROM bookings b
		WHERE b.workshop_id = ? AND b.deleted_at IS NULL
		GROUP BY b.status`, workshopID).
		Scan(ctx, &counts)
	if err != nil {
		return nil, fmt.Errorf("count bookings by status: %w", err)
	}
	for _, c := range counts {
		result.BookingsByStatus[c.Status] = c.Count
		result.TotalBookings += c.Count
	}

	err = s.db.NewRaw(`
		SELECT COALESCE(SUM(p.amount), 0)
		FROM payments p
		JOIN bookings b ON b.id = p.booking_id
		WHERE b.workshop_id = ? AND b.deleted_at IS NULL AND p.status = ?`,
		workshopID, models.PaymentPaid).
		Scan(ctx, &result.TotalRevenue)
	if err != nil {
		return nil, fmt.Errorf("sum revenue: %w", err)
	}

	var ratings struct {
		Average float64 `bun:"average"`
		Count   int     `bun:"count"`
	}
	err = s.db.NewRaw(`
		SELECT COALESCE(AVG(r.rating), 0) AS average, COUNT(r.id) AS count
		FROM reviews r
		JOIN bookings b ON b.id = r.booking_id
		WHERE b.workshop_id = ?`, workshopID).
		Scan(ctx, &ratings)
	if err != nil {
		return nil, fmt.Errorf("aggregate ratings: %w", err)
	}
	result.AverageRating = ratings.Average
	result.ReviewCount = ratings.Count

	now := s.now().UTC()
	result.UpcomingBookings, err = s.db.NewSelect().
		Model((*models.Booking)(nil)).
		Where("b.workshop_id = ?", workshopID).
		Where("b.deleted_at IS NULL").
		Where("b.status IN (?)", bun.In([]models.BookingStatus{models.BookingPending, models.BookingConfirmed})).
		Where("b.scheduled_at > ?", now).
		Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count upcoming bookings: %w", err)
	}

	result.DailyRevenue, err = s.dailyRevenue(ctx, workshopID, now.Add(-RevenueWindow))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// dailyRevenue buckets PAID payments by UTC day in Go so the query stays
// portable between PostgreSQL and SQLite.
func (s *Service) dailyRevenue(ctx context.Context, workshopID string, since time.Time) ([]DailyRevenue, error) {
	var payments []models.Payment
	err := s.db.NewSelect().
		Model(&payments).
		Column("p.amount", "p.paid_at").
		Join("JOIN bookings AS b ON b.id = p.booking_id").
		Where("b.workshop_id = ?", workshopID).
		Where("b.deleted_at IS NULL").
		Where("p.status = ?", models.PaymentPaid).
		Where("p.paid_at >= ?", since).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load paid payments: %w", err)
	}

	byDay := make(map[string]*DailyRevenue)
	for _, p := range payments {
		if p.PaidAt == nil {
			continue
		}
		day := p.PaidAt.UTC().Format("2006-01-02")
		entry, ok := byDay[day]
		if !ok {
			entry = &DailyRevenue{Date: day}
			byDay[day] = entry
		}
		entry.Revenue += p.Amount
		entry.Payments++
	}

	out := make([]DailyRevenue, 0, len(byDay))
	for _, entry := range byDay {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}
