package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"mekaniku/internal/apperr"
	"mekaniku/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) CreateUser(ctx context.Context, user *models.User) error {
	if _, err := d.Bun.NewInsert().Model(user).Exec(ctx); err != nil {
		return apperr.FromDB(fmt.Errorf("insert user: %w", err), "User")
	}
	return nil
}

func (d *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := new(models.User)
	err := d.Bun.NewSelect().Model(user).Where("u.email = ?", email).Limit(1).Scan(ctx)
	if err != nil {
		return nil, apperr.FromDB(err, "User")
	}
	return user, nil
}

func (d *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user := new(models.User)
	err := d.Bun.NewSelect().Model(user).Where("u.id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, apperr.FromDB(err, "User")
	}
	return user, nil
}

// WorkshopIDForUser prefers mechanic membership over ownership. Returns ""
// when the user is attached to no workshop.
func (d *DB) WorkshopIDForUser(ctx context.Context, userID string) (string, error) {
	var workshopID string
	err := d.Bun.NewSelect().
		Model((*models.Mechanic)(nil)).
		Column("m.workshop_id").
		Where("m.user_id = ?", userID).
		Limit(1).
		Scan(ctx, &workshopID)
	if err == nil {
		return workshopID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("lookup mechanic workshop: %w", err)
	}

	err = d.Bun.NewSelect().
		Model((*models.Workshop)(nil)).
		Column("w.id").
		Where("w.owner_id = ?", userID).
		Where("w.deleted_at IS NULL").
		OrderExpr("w.created_at ASC").
		Limit(1).
		Scan(ctx, &workshopID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup owned workshop: %w", err)
	}
	return workshopID, nil
}

func (d *DB) IsWorkshopStaff(ctx context.Context, userID, workshopID string) (bool, error) {
	owns, err := d.Bun.NewSelect().
		Model((*models.Workshop)(nil)).
		Where("w.id = ?", workshopID).
		Where("w.owner_id = ?", userID).
		Where("w.deleted_at IS NULL").
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check workshop owner: %w", err)
	}
	if owns {
		return true, nil
	}

	works, err := d.Bun.NewSelect().
		Model((*models.Mechanic)(nil)).
		Where("m.workshop_id = ?", workshopID).
		Where("m.user_id = ?", userID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check workshop mechanic: %w", err)
	}
	return works, nil
}
