package db

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"mekaniku/internal/apperr"
	"mekaniku/internal/audit"
	"mekaniku/internal/models"
	notification_db "mekaniku/internal/notification/db"
)

type DB struct {
	Bun *bun.DB
}

// GetBooking loads a live booking with its payment, if any.
func (d *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	booking := new(models.Booking)
	err := d.Bun.NewSelect().
		Model(booking).
		Relation("Payment").
		Where("b.id = ?", id).
		Where("b.deleted_at IS NULL").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, apperr.FromDB(err, "Booking")
	}
	return booking, nil
}

// CreatePayment stores the payment. A successful payment carries its audit
// entry and customer notification in the same transaction.
func (d *DB) CreatePayment(ctx context.Context, p *models.Payment, entry *audit.Entry, n *models.Notification) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(p).Exec(ctx); err != nil {
			return apperr.FromDB(fmt.Errorf("insert payment: %w", err), "Payment")
		}
		if entry != nil {
			if _, err := audit.Record(ctx, tx, *entry); err != nil {
				return err
			}
		}
		if n != nil {
			if err := notification_db.Create(ctx, tx, n); err != nil {
				return fmt.Errorf("insert notification: %w", err)
			}
		}
		return nil
	})
}

func (d *DB) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	payment := new(models.Payment)
	err := d.Bun.NewSelect().
		Model(payment).
		Relation("Booking").
		Relation("Booking.Workshop", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Column("id", "owner_id", "name")
		}).
		Where("p.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, apperr.FromDB(err, "Payment")
	}
	return payment, nil
}

func (d *DB) IsWorkshopStaff(ctx context.Context, userID, workshopID string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.Mechanic)(nil)).
		Where("m.workshop_id = ?", workshopID).
		Where("m.user_id = ?", userID).
		Exists(ctx)
}
