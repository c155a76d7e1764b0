package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"mekaniku/internal/apperr"
	"mekaniku/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// Bounds is a latitude/longitude rectangle.
type Bounds struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

type ListQuery struct {
	City   string
	Bounds *Bounds
	Limit  int
	Offset int
}

func (d *DB) GetUser(ctx context.Context, id string) (*models.User, error) {
	user := new(models.User)
	err := d.Bun.NewSelect().Model(user).Where("u.id = ?", id).Where("u.deleted_at IS NULL").Limit(1).Scan(ctx)
	if err != nil {
		return nil, apperr.FromDB(err, "User")
	}
	return user, nil
}

func (d *DB) CreateWorkshop(ctx context.Context, w *models.Workshop) error {
	if _, err := d.Bun.NewInsert().Model(w).Exec(ctx); err != nil {
		return apperr.FromDB(fmt.Errorf("insert workshop: %w", err), "Workshop")
	}
	return nil
}

func (d *DB) ListWorkshops(ctx context.Context, q ListQuery) ([]models.Workshop, int, error) {
	var workshops []models.Workshop
	query := d.Bun.NewSelect().
		Model(&workshops).
		Relation("Owner", ownerProjection).
		Where("w.deleted_at IS NULL")

	if q.City != "" {
		query = query.Where("LOWER(w.city) LIKE ?", "%"+strings.ToLower(q.City)+"%")
	}
	if b := q.Bounds; b != nil {
		query = query.
			Where("w.latitude BETWEEN ? AND ?", b.MinLat, b.MaxLat).
			Where("w.longitude BETWEEN ? AND ?", b.MinLng, b.MaxLng)
	}

	total, err := query.
		OrderExpr("w.created_at DESC").
		Limit(q.Limit).
		Offset(q.Offset).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list workshops: %w", err)
	}
	return workshops, total, nil
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

// GetWorkshopDetail loads the workshop with its owner, live services and mechanics.
func (d *DB) GetWorkshopDetail(ctx context.Context, id string) (*models.Workshop, error) {
	workshop := new(models.Workshop)
	err := d.Bun.NewSelect().
		Model(workshop).
		Relation("Owner", ownerProjection).
		Relation("Services", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("sc.deleted_at IS NULL").OrderExpr("sc.name ASC")
		}).
		Relation("Mechanics", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("m.created_at DESC")
		}).
		Relation("Mechanics.User", ownerProjection).
		Where("w.id = ?", id).
		Where("w.deleted_at IS NULL").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, apperr.FromDB(err, "Workshop")
	}
	return workshop, nil
}

func (d *DB) UpdateWorkshop(ctx context.Context, w *models.Workshop) error {
	w.UpdatedAt = time.Now().UTC()
	_, err := d.Bun.NewUpdate().
		Model(w).
		Column("name", "address", "city", "latitude", "longitude", "open_hours", "updated_at").
		WherePK().
		Exec(ctx)
	return err
}

func (d *DB) SoftDeleteWorkshop(ctx context.Context, id string) error {
	now := time.Now().UTC()
	_, err := d.Bun.NewUpdate().
		Model((*models.Workshop)(nil)).
		Set("deleted_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (d *DB) CreateService(ctx context.Context, s *models.ServiceCatalog) error {
	if _, err := d.Bun.NewInsert().Model(s).Exec(ctx); err != nil {
		return apperr.FromDB(fmt.Errorf("insert service: %w", err), "Service")
	}
	return nil
}

func (d *DB) ListServices(ctx context.Context, workshopID string) ([]models.ServiceCatalog, error) {
	services := []models.ServiceCatalog{}
	err := d.Bun.NewSelect().
		Model(&services).
		Where("sc.workshop_id = ?", workshopID).
		Where("sc.deleted_at IS NULL").
		OrderExpr("sc.name ASC").
		Scan(ctx)
	return services, err
}

func (d *DB) GetService(ctx context.Context, workshopID, id string) (*models.ServiceCatalog, error) {
	service := new(models.ServiceCatalog)
	err := d.Bun.NewSelect().
		Model(service).
		Where("sc.id = ?", id).
		Where("sc.workshop_id = ?", workshopID).
		Where("sc.deleted_at IS NULL").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, apperr.FromDB(err, "Service")
	}
	return service, nil
}

func (d *DB) UpdateService(ctx context.Context, s *models.ServiceCatalog) error {
	s.UpdatedAt = time.Now().UTC()
	_, err := d.Bun.NewUpdate().
		Model(s).
		Column("name", "description", "base_price", "est_duration_min", "updated_at").
		WherePK().
		Exec(ctx)
	return err
}

func (d *DB) SoftDeleteService(ctx context.Context, id string) error {
	now := time.Now().UTC()
	_, err := d.Bun.NewUpdate().
		Model((*models.ServiceCatalog)(nil)).
		Set("deleted_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (d *DB) MechanicExistsForUser(ctx context.Context, userID string) (bool, error) {
	return d.Bun.NewSelect().Model((*models.Mechanic)(nil)).Where("m.user_id = ?", userID).Exists(ctx)
}

func (d *DB) CreateMechanic(ctx context.Context, m *models.Mechanic) error {
	if _, err := d.Bun.NewInsert().Model(m).Exec(ctx); err != nil {
		return apperr.FromDB(fmt.Errorf("insert mechanic: %w", err), "Mechanic")
	}
	return nil
}

func (d *DB) ListMechanics(ctx context.Context, workshopID string) ([]models.Mechanic, error) {
	mechanics := []models.Mechanic{}
	err := d.Bun.NewSelect().
		Model(&mechanics).
		Relation("User", ownerProjection).
		Where("m.workshop_id = ?", workshopID).
		OrderExpr("m.created_at DESC").
		Scan(ctx)
	return mechanics, err
}

func (d *DB) GetMechanic(ctx context.Context, workshopID, id string) (*models.Mechanic, error) {
	mechanic := new(models.Mechanic)
	err := d.Bun.NewSelect().
		Model(mechanic).
		Relation("User", ownerProjection).
		Where("m.id = ?", id).
		Where("m.workshop_id = ?", workshopID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, apperr.FromDB(err, "Mechanic")
	}
	return mechanic, nil
}

func (d *DB) UpdateMechanic(ctx context.Context, m *models.Mechanic) error {
	m.UpdatedAt = time.Now().UTC()
	_, err := d.Bun.NewUpdate().
		Model(m).
		Column("specialization", "is_active", "updated_at").
		WherePK().
		Exec(ctx)
	return err
}

func (d *DB) DeleteMechanic(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().Model((*models.Mechanic)(nil)).Where("id = ?", id).Exec(ctx)
	return err
}

func ownerProjection(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Column("id", "name", "email")
}
