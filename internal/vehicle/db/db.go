package db

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"mekaniku/internal/apperr"
	"mekaniku/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) CreateVehicle(ctx context.Context, v *models.Vehicle) error {
	if _, err := d.Bun.NewInsert().Model(v).Exec(ctx); err != nil {
		return apperr.FromDB(fmt.Errorf("insert vehicle: %w", err), "Vehicle")
	}
	return nil
}

func (d *DB) ListVehicles(ctx context.Context, customerID string) ([]models.Vehicle, error) {
	vehicles := []models.Vehicle{}
	err := d.Bun.NewSelect().
		Model(&vehicles).
		Where("v.customer_id = ?", customerID).
		OrderExpr("v.created_at DESC").
		Scan(ctx)
	return vehicles, err
}

func (d *DB) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	vehicle := new(models.Vehicle)
	if err := d.Bun.NewSelect().Model(vehicle).Where("v.id = ?", id).Limit(1).Scan(ctx); err != nil {
		return nil, apperr.FromDB(err, "Vehicle")
	}
	return vehicle, nil
}

func (d *DB) UpdateVehicle(ctx context.Context, v *models.Vehicle) error {
	v.UpdatedAt = time.Now().UTC()
	_, err := d.Bun.NewUpdate().
		Model(v).
		Column("plate_no", "brand", "model", "year", "updated_at").
		WherePK().
		Exec(ctx)
	return err
}

func (d *DB) HasBookings(ctx context.Context, vehicleID string) (bool, error) {
	return d.Bun.NewSelect().Model((*models.Booking)(nil)).Where("b.vehicle_id = ?", vehicleID).Exists(ctx)
}

func (d *DB) DeleteVehicle(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().Model((*models.Vehicle)(nil)).Where("id = ?", id).Exec(ctx)
	return err
}
