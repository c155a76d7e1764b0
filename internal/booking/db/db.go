package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"mekaniku/internal/apperr"
	"mekaniku/internal/audit"
	"mekaniku/internal/models"
	notification_db "mekaniku/internal/notification/db"
)

type DB struct {
	Bun *bun.DB
}

// Transition is one status change with the rows that must commit with it.
type Transition struct {
	BookingID    string
	From         models.BookingStatus
	To           models.BookingStatus
	Audit        audit.Entry
	Notification *models.Notification
}

// GetBookingForTransition loads a live booking with its workshop and payment.
func (d *DB) GetBookingForTransition(ctx context.Context, id string) (*models.Booking, error) {
	booking := new(models.Booking)
	err := d.Bun.NewSelect().
		Model(booking).
		Relation("Workshop").
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

// GetBookingSummary loads a booking with customer and workshop projections.
func (d *DB) GetBookingSummary(ctx context.Context, id string) (*models.Booking, error) {
	booking := new(models.Booking)
	err := d.Bun.NewSelect().
		Model(booking).
		Relation("Customer", selectUserProjection).
		Relation("Workshop", selectWorkshopProjection).
		Where("b.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, apperr.FromDB(err, "Booking")
	}
	return booking, nil
}

// GetBooking loads the full projection of a live booking.
func (d *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	booking := new(models.Booking)
	err := d.Bun.NewSelect().
		Model(booking).
		Relation("Customer", selectUserProjection).
		Relation("Workshop", selectWorkshopProjection).
		Relation("Vehicle").
		Relation("Service").
		Relation("Payment").
		Relation("Inspection").
		Relation("WorkOrder").
		Relation("Review").
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

// IsWorkshopStaff reports whether userID owns or works at workshopID.
func (d *DB) IsWorkshopStaff(ctx context.Context, userID, workshopID string) (bool, error) {
	owned, err := d.Bun.NewSelect().
		Model((*models.Workshop)(nil)).
		Where("w.id = ?", workshopID).
		Where("w.owner_id = ?", userID).
		Exists(ctx)
	if err != nil || owned {
		return owned, err
	}
	return d.Bun.NewSelect().
		Model((*models.Mechanic)(nil)).
		Where("m.workshop_id = ?", workshopID).
		Where("m.user_id = ?", userID).
		Exists(ctx)
}

// ListQuery scopes a booking listing. StaffUserID restricts results to
// workshops the user owns or works at.
type ListQuery struct {
	Filter      models.BookingFilter
	CustomerID  string
	StaffUserID string
	Limit       int
	Offset      int
}

func (d *DB) ListBookings(ctx context.Context, q ListQuery) ([]models.Booking, int, error) {
	var bookings []models.Booking
	query := d.Bun.NewSelect().
		Model(&bookings).
		Relation("Customer", selectUserProjection).
		Relation("Workshop", selectWorkshopProjection).
		Relation("Vehicle").
		Relation("Service").
		Relation("Payment").
		Where("b.deleted_at IS NULL")

	if q.CustomerID != "" {
		query = query.Where("b.customer_id = ?", q.CustomerID)
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
				Where("b.workshop_id IN (?)", owned).
				WhereOr("b.workshop_id IN (?)", employed)
		})
	}
	if q.Filter.Status != "" {
		query = query.Where("b.status = ?", q.Filter.Status)
	}
	if q.Filter.WorkshopID != "" {
		query = query.Where("b.workshop_id = ?", q.Filter.WorkshopID)
	}

	total, err := query.
		OrderExpr("b.scheduled_at DESC").
		Limit(q.Limit).
		Offset(q.Offset).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, total, nil
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

// GetCustomerVehicle reports NotFound for vehicles the customer does not own.
func (d *DB) GetCustomerVehicle(ctx context.Context, id, customerID string) (*models.Vehicle, error) {
	vehicle := new(models.Vehicle)
	err := d.Bun.NewSelect().
		Model(vehicle).
		Where("v.id = ?", id).
		Where("v.customer_id = ?", customerID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Vehicle")
	}
	if err != nil {
		return nil, err
	}
	return vehicle, nil
}

func (d *DB) GetService(ctx context.Context, id string) (*models.ServiceCatalog, error) {
	service := new(models.ServiceCatalog)
	err := d.Bun.NewSelect().
		Model(service).
		Where("sc.id = ?", id).
		Where("sc.deleted_at IS NULL").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, apperr.FromDB(err, "Service")
	}
	return service, nil
}

func (d *DB) GetConsultation(ctx context.Context, id string) (*models.Consultation, error) {
	consultation := new(models.Consultation)
	err := d.Bun.NewSelect().Model(consultation).Where("c.id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, apperr.FromDB(err, "Consultation")
	}
	return consultation, nil
}

func (d *DB) GetUser(ctx context.Context, id string) (*models.User, error) {
	user := new(models.User)
	err := d.Bun.NewSelect().Model(user).Where("u.id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return nil, apperr.FromDB(err, "User")
	}
	return user, nil
}

// CreateBooking inserts the booking, its CREATE audit entry and the owner
// notification in one transaction.
func (d *DB) CreateBooking(ctx context.Context, booking *models.Booking, entry audit.Entry, n *models.Notification) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(booking).Exec(ctx); err != nil {
			return apperr.FromDB(fmt.Errorf("insert booking: %w", err), "Booking")
		}
		if _, err := audit.Record(ctx, tx, entry); err != nil {
			return err
		}
		if err := notification_db.Create(ctx, tx, n); err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
		return nil
	})
}

// ApplyTransition moves the booking from t.From to t.To only if it is still
// in t.From. A lost race rolls back with Conflict.
func (d *DB) ApplyTransition(ctx context.Context, t Transition) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*models.Booking)(nil)).
			Set("status = ?", t.To).
			Set("updated_at = ?", time.Now().UTC()).
			Where("id = ?", t.BookingID).
			Where("status = ?", t.From).
			Where("deleted_at IS NULL").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update booking status: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update booking status: %w", err)
		}
		if rows == 0 {
			return apperr.Conflict("Booking status was changed by another request")
		}

		if _, err := audit.Record(ctx, tx, t.Audit); err != nil {
			return err
		}
		if err := notification_db.Create(ctx, tx, t.Notification); err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
		return nil
	})
}

func selectUserProjection(q *bun.SelectQuery) *bun.SelectQuery {
	return q.ExcludeColumn("password_hash")
}

func selectWorkshopProjection(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Column("id", "owner_id", "name", "address", "city")
}
