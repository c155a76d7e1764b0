package db

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"mekaniku/internal/apperr"
	"mekaniku/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// Create inserts n using idb, which may be a transaction.
func Create(ctx context.Context, idb bun.IDB, n *models.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	_, err := idb.NewInsert().Model(n).Exec(ctx)
	return err
}

func (d *DB) Create(ctx context.Context, n *models.Notification) error {
	return Create(ctx, d.Bun, n)
}

func (d *DB) ListForUser(ctx context.Context, userID string, limit, offset int) ([]models.Notification, int, error) {
	var notifications []models.Notification
	total, err := d.Bun.NewSelect().
		Model(&notifications).
		Where("n.to_user_id = ?", userID).
		OrderExpr("n.created_at DESC").
		Limit(limit).
		Offset(offset).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

// GetForUser returns the notification only when userID is its recipient.
func (d *DB) GetForUser(ctx context.Context, id, userID string) (*models.Notification, error) {
	n := new(models.Notification)
	err := d.Bun.NewSelect().
		Model(n).
		Where("n.id = ?", id).
		Where("n.to_user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, apperr.FromDB(err, "Notification")
	}
	return n, nil
}

func (d *DB) MarkRead(ctx context.Context, id string, at time.Time) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Notification)(nil)).
		Set("read_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (d *DB) MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Notification)(nil)).
		Set("read_at = ?", at).
		Where("to_user_id = ?", userID).
		Where("read_at IS NULL").
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
