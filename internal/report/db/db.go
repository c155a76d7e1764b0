package db

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"mekaniku/internal/apperr"
	"mekaniku/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// GetBooking loads a live booking with everything printed on its report.
func (d *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	booking := new(models.Booking)
	err := d.Bun.NewSelect().
		Model(booking).
		Relation("Customer", userProjection).
		Relation("Workshop", workshopProjection).
		Relation("Vehicle").
		Relation("Service").
		Relation("Payment").
		Relation("Report").
		Where("b.id = ?", id).
		Where("b.deleted_at IS NULL").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, apperr.FromDB(err, "Booking")
	}
	return booking, nil
}

func (d *DB) IsWorkshopStaff(ctx context.Context, userID, workshopID string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.Workshop)(nil)).
		Where("w.id = ?", workshopID).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("w.owner_id = ?", userID).
				WhereOr("EXISTS (SELECT 1 FROM mechanics AS m WHERE m.workshop_id = w.id AND m.user_id = ?)", userID)
		}).
		Exists(ctx)
}

func (d *DB) CreateReport(ctx context.Context, r *models.Report) error {
	if _, err := d.Bun.NewInsert().Model(r).Exec(ctx); err != nil {
		return apperr.FromDB(fmt.Errorf("insert report: %w", err), "Report")
	}
	return nil
}

func (d *DB) GetReport(ctx context.Context, id string) (*models.Report, error) {
	report := new(models.Report)
	err := d.Bun.NewSelect().
		Model(report).
		Relation("Booking").
		Relation("Booking.Customer", userProjection).
		Relation("Booking.Workshop", workshopProjection).
		Relation("Booking.Service").
		Relation("Booking.Payment").
		Relation("Booking.WorkOrder").
		Where("rp.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, apperr.FromDB(err, "Report")
	}
	return report, nil
}

func userProjection(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Column("id", "name", "email")
}

func workshopProjection(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Column("id", "owner_id", "name", "address", "city")
}
