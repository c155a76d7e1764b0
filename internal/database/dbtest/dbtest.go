// Package dbtest provides an in-memory SQLite bun.DB with the full schema and
// small fixture builders for package tests.
package dbtest

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"mekaniku/internal/database"
	"mekaniku/internal/models"
)

// New returns a fresh database. A single connection keeps the in-memory
// database alive for the lifetime of the test.
func New(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if err := database.CreateSchema(context.Background(), db); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type Fixtures struct {
	t  *testing.T
	db *bun.DB
}

func NewFixtures(t *testing.T, db *bun.DB) *Fixtures {
	return &Fixtures{t: t, db: db}
}

func (f *Fixtures) insert(model interface{}) {
	f.t.Helper()
	if _, err := f.db.NewInsert().Model(model).Exec(context.Background()); err != nil {
		f.t.Fatalf("insert %T: %v", model, err)
	}
}

func (f *Fixtures) User(role models.Role) *models.User {
	now := time.Now().UTC()
	id := uuid.NewString()
	u := &models.User{
		ID:           id,
		Name:         string(role) + " " + id[:6],
		Email:        id[:8] + "@example.com",
		PasswordHash: "x",
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.insert(u)
	return u
}

func (f *Fixtures) Workshop(ownerID string) *models.Workshop {
	now := time.Now().UTC()
	w := &models.Workshop{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      "Bengkel Jaya",
		Address:   "Jl. Sudirman 1",
		City:      "Jakarta",
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(w)
	return w
}

func (f *Fixtures) Service(workshopID string, price float64) *models.ServiceCatalog {
	now := time.Now().UTC()
	s := &models.ServiceCatalog{
		ID:             uuid.NewString(),
		WorkshopID:     workshopID,
		Name:           "Oil Change",
		BasePrice:      price,
		EstDurationMin: 60,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	f.insert(s)
	return s
}

func (f *Fixtures) Mechanic(userID, workshopID string) *models.Mechanic {
	now := time.Now().UTC()
	m := &models.Mechanic{
		ID:             uuid.NewString(),
		UserID:         userID,
		WorkshopID:     workshopID,
		Specialization: []string{"engine"},
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	f.insert(m)
	return m
}

func (f *Fixtures) Vehicle(customerID string) *models.Vehicle {
	now := time.Now().UTC()
	v := &models.Vehicle{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		PlateNo:    "B 1234 XYZ",
		Brand:      "Toyota",
		Model:      "Avanza",
		Year:       2020,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.insert(v)
	return v
}

func (f *Fixtures) Booking(customerID, workshopID, vehicleID, serviceID string, status models.BookingStatus) *models.Booking {
	now := time.Now().UTC()
	b := &models.Booking{
		ID:          uuid.NewString(),
		CustomerID:  customerID,
		WorkshopID:  workshopID,
		VehicleID:   vehicleID,
		ServiceID:   serviceID,
		ScheduledAt: now.Add(24 * time.Hour).Truncate(time.Second),
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.insert(b)
	return b
}

func (f *Fixtures) Payment(bookingID string, amount float64, status models.PaymentStatus) *models.Payment {
	now := time.Now().UTC()
	p := &models.Payment{
		ID:        uuid.NewString(),
		BookingID: bookingID,
		Amount:    amount,
		Method:    models.MethodCash,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if status == models.PaymentPaid {
		p.PaidAt = &now
	}
	f.insert(p)
	return p
}

// Scenario is a customer, an owned workshop with one service, and a vehicle.
type Scenario struct {
	Customer *models.User
	Owner    *models.User
	Workshop *models.Workshop
	Service  *models.ServiceCatalog
	Vehicle  *models.Vehicle
}

func (f *Fixtures) Scenario() Scenario {
	customer := f.User(models.RoleCustomer)
	owner := f.User(models.RoleWorkshop)
	workshop := f.Workshop(owner.ID)
	return Scenario{
		Customer: customer,
		Owner:    owner,
		Workshop: workshop,
		Service:  f.Service(workshop.ID, 150000),
		Vehicle:  f.Vehicle(customer.ID),
	}
}

func (s Scenario) Booking(f *Fixtures, status models.BookingStatus) *models.Booking {
	return f.Booking(s.Customer.ID, s.Workshop.ID, s.Vehicle.ID, s.Service.ID, status)
}
