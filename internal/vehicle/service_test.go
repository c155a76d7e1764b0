package vehicle_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mekaniku/internal/apperr"
	"mekaniku/internal/database/dbtest"
	"mekaniku/internal/logger"
	"mekaniku/internal/models"
	"mekaniku/internal/vehicle"
	vehicle_db "mekaniku/internal/vehicle/db"
)

func newService(t *testing.T) (*vehicle.VehicleService, *dbtest.Fixtures) {
	t.Helper()
	db := dbtest.New(t)
	return vehicle.NewVehicleService(&vehicle_db.DB{Bun: db}, logger.Discard()), dbtest.NewFixtures(t, db)
}

func TestCreateAndListNewestFirst(t *testing.T) {
	svc, f := newService(t)
	ctx := context.Background()
	customer := f.User(models.RoleCustomer)

	first, err := svc.CreateVehicle(ctx, customer.ID, models.CreateVehicleRequest{PlateNo: "b  1 abc", Brand: "Honda", Model: "Jazz", Year: 2018})
	require.NoError(t, err)
	assert.Equal(t, "B 1 ABC", first.PlateNo)

	time.Sleep(5 * time.Millisecond)
	second, err := svc.CreateVehicle(ctx, customer.ID, models.CreateVehicleRequest{PlateNo: "D 2 XY", Brand: "Suzuki", Model: "Ertiga", Year: 2021})
	require.NoError(t, err)

	f.Vehicle(f.User(models.RoleCustomer).ID)

	vehicles, err := svc.ListVehicles(ctx, customer.ID)
	require.NoError(t, err)
	require.Len(t, vehicles, 2)
	assert.Equal(t, second.ID, vehicles[0].ID)
	assert.Equal(t, first.ID, vehicles[1].ID)
}

func TestCreateRejectsFutureYear(t *testing.T) {
	svc, f := newService(t)
	_, err := svc.CreateVehicle(context.Background(), f.User(models.RoleCustomer).ID,
		models.CreateVehicleRequest{PlateNo: "B 9", Brand: "Tesla", Model: "X", Year: time.Now().Year() + 5})
	assert.True(t, apperr.IsValidation(err))
}

func TestOwnerOnlyAccess(t *testing.T) {
	svc, f := newService(t)
	ctx := context.Background()
	owner := f.User(models.RoleCustomer)
	other := f.User(models.RoleCustomer)
	v := f.Vehicle(owner.ID)

	_, err := svc.GetVehicle(ctx, other.ID, v.ID)
	assert.True(t, apperr.IsNotFound(err))

	year := 2022
	_, err = svc.UpdateVehicle(ctx, other.ID, v.ID, models.UpdateVehicleRequest{Year: &year})
	assert.True(t, apperr.IsNotFound(err))

	updated, err := svc.UpdateVehicle(ctx, owner.ID, v.ID, models.UpdateVehicleRequest{Year: &year})
	require.NoError(t, err)
	assert.Equal(t, 2022, updated.Year)
	assert.Equal(t, "Toyota", updated.Brand)

	assert.True(t, apperr.IsNotFound(svc.DeleteVehicle(ctx, other.ID, v.ID)))
	require.NoError(t, svc.DeleteVehicle(ctx, owner.ID, v.ID))
	_, err = svc.GetVehicle(ctx, owner.ID, v.ID)
	assert.True(t, apperr.IsNotFound(err))
}

func TestDeleteBookedVehicleConflicts(t *testing.T) {
	svc, f := newService(t)
	s := f.Scenario()
	s.Booking(f, models.BookingPending)

	err := svc.DeleteVehicle(context.Background(), s.Customer.ID, s.Vehicle.ID)
	assert.True(t, apperr.IsConflict(err))
}
