package db

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"mekaniku/internal/apperr"
	"mekaniku/internal/audit"
	"mekaniku/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	booking := new(models.Booking)
	err := d.Bun.NewSelect().
		Model(booking).
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

func (d *DB) CreateInspection(ctx context.Context, i *models.Inspection) error {
	if _, err := d.Bun.NewInsert().Model(i).Exec(ctx); err != nil {
		return apperr.FromDB(fmt.Errorf("insert inspection: %w", err), "Inspection")
	}
	return nil
}

func (d *DB) CreateWorkOrder(ctx context.Context, wo *models.WorkOrder) error {
	if _, err := d.Bun.NewInsert().Model(wo).Exec(ctx); err != nil {
		return apperr.FromDB(fmt.Errorf("insert work order: %w", err), "WorkOrder")
	}
	return nil
}

func (d *DB) GetWorkOrder(ctx context.Context, id string) (*models.WorkOrder, error) {
	wo := new(models.WorkOrder)
	if err := d.Bun.NewSelect().Model(wo).Where("wo.id = ?", id).Limit(1).Scan(ctx); err != nil {
		return nil, apperr.FromDB(err, "WorkOrder")
	}
	return wo, nil
}

// UpdateWorkOrder saves wo, which was read in status from, together with
// its audit entry. A concurrent status change rolls back with Conflict.
func (d *DB) UpdateWorkOrder(ctx context.Context, wo *models.WorkOrder, from models.WorkStatus, entry audit.Entry) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		wo.UpdatedAt = time.Now().UTC()
		res, err := tx.NewUpdate().
			Model(wo).
			Column("status", "tasks", "parts", "labor_hours", "subtotal", "updated_at").
			WherePK().
			Where("status = ?", from).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update work order: %w", err)
		}
		if rows, err := res.RowsAffected(); err != nil {
			return err
		} else if rows == 0 {
			return apperr.Conflict("Work order was changed by another request")
		}
		_, err = audit.Record(ctx, tx, entry)
		return err
	})
}
