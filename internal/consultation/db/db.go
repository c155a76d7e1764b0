package db

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"mekaniku/internal/apperr"
	"mekaniku/internal/models"
	notification_db "mekaniku/internal/notification/db"
)

type DB struct {
	Bun *bun.DB
}

type ListQuery struct {
	CustomerID  string
	StaffUserID string
	Status      models.ConsultationStatus
	Limit       int
	Offset      int
}

func (d *DB) GetWorkshop(ctx context.Context, id string) (*models.Workshop, error) {
	workshop := new(models.Workshop)
	err := d.Bun.NewSelect().
		Model(workshop).
		Where("w.id = ?", id).
		Where("w.deleted_at IS NULL").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, apperr.FromDB(err, "Workshop")
	}
	return workshop, nil
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

// CreateConsultation inserts the consultation and the owner notification in
// one transaction.
func (d *DB) CreateConsultation(ctx context.Context, c *models.Consultation, n *models.Notification) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(c).Exec(ctx); err != nil {
			return apperr.FromDB(fmt.Errorf("insert consultation: %w", err), "Consultation")
		}
		if err := notification_db.Create(ctx, tx, n); err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
		return nil
	})
}

func (d *DB) GetConsultation(ctx context.Context, id string) (*models.Consultation, error) {
	consultation := new(models.Consultation)
	err := d.Bun.NewSelect().
		Model(consultation).
		Relation("Customer", userProjection).
		Relation("Workshop", workshopProjection).
		Where("c.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, apperr.FromDB(err, "Consultation")
	}
	return consultation, nil
}

func (d *DB) ListConsultations(ctx context.Context, q ListQuery) ([]models.Consultation, int, error) {
	var consultations []models.Consultation
	query := d.Bun.NewSelect().
		Model(&consultations).
		Relation("Customer", userProjection).
		Relation("Workshop", workshopProjection)

	if q.CustomerID != "" {
		query = query.Where("c.customer_id = ?", q.CustomerID)
	}
	if q.StaffUserID != "" {
		owned := d.Bun.NewSelect().
			Model((*models.Workshop)(nil)).
			Column("w.id").
			Where("w.owner_id = ?", q.StaffUserID)
		employed := d.Bun.NewSelect().
			Model((*models.Mechanic)(nil)).
			Column("m.workshop_id").
			Where("m.user_id = ?", q.StaffUserID)
		query = query.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.
				Where("c.workshop_id IN (?)", owned).
				WhereOr("c.workshop_id IN (?)", employed)
		})
	}
	if q.Status != "" {
		query = query.Where("c.status = ?", q.Status)
	}

	total, err := query.
		OrderExpr("c.created_at DESC").
		Limit(q.Limit).
		Offset(q.Offset).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list consultations: %w", err)
	}
	return consultations, total, nil
}

// CloseConsultation reports false when the consultation was not OPEN.
func (d *DB) CloseConsultation(ctx context.Context, id string) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Consultation)(nil)).
		Set("status = ?", models.ConsultationClosed).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("status = ?", models.ConsultationOpen).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("close consultation: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func userProjection(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Column("id", "name", "email")
}

func workshopProjection(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Column("id", "owner_id", "name", "address", "city")
}
