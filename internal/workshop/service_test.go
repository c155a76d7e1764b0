package workshop_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mekaniku/internal/apperr"
	"mekaniku/internal/database/dbtest"
	"mekaniku/internal/logger"
	"mekaniku/internal/models"
	"mekaniku/internal/utils"
	"mekaniku/internal/workshop"
	workshop_db "mekaniku/internal/workshop/db"
)

func newService(t *testing.T) (*workshop.WorkshopService, *dbtest.Fixtures) {
	t.Helper()
	db := dbtest.New(t)
	return workshop.NewWorkshopService(&workshop_db.DB{Bun: db}, logger.Discard()), dbtest.NewFixtures(t, db)
}

func ptr[T any](v T) *T { return &v }

func TestBoundsAround(t *testing.T) {
	b := workshop.BoundsAround(0, 100, 0)
	assert.InDelta(t, -10.0/111, b.MinLat, 1e-9)
	assert.InDelta(t, 10.0/111, b.MaxLat, 1e-9)
	assert.InDelta(t, 100+10.0/111, b.MaxLng, 1e-9)

	// Longitude span grows away from the equator.
	north := workshop.BoundsAround(60, 0, 10)
	assert.InDelta(t, 20.0/111, north.MaxLat-north.MinLat, 1e-9)
	assert.InDelta(t, 2*10/(111*0.5), north.MaxLng-north.MinLng, 1e-6)
}

func TestCreateWorkshop(t *testing.T) {
	svc, f := newService(t)
	ctx := context.Background()
	req := models.CreateWorkshopRequest{Name: "Bengkel Maju", Address: "Jl. Merdeka 10", City: "Bandung"}

	owner := f.User(models.RoleWorkshop)
	created, err := svc.CreateWorkshop(ctx, owner.ID, req)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, created.OwnerID)
	assert.NotEmpty(t, created.ID)

	customer := f.User(models.RoleCustomer)
	_, err = svc.CreateWorkshop(ctx, customer.ID, req)
	assert.True(t, apperr.IsForbidden(err))

	_, err = svc.CreateWorkshop(ctx, "missing", req)
	assert.True(t, apperr.IsNotFound(err))
}

func TestListWorkshopsFilters(t *testing.T) {
	svc, f := newService(t)
	ctx := context.Background()
	owner := f.User(models.RoleWorkshop)

	jakarta, err := svc.CreateWorkshop(ctx, owner.ID, models.CreateWorkshopRequest{
		Name: "Central", Address: "Jl. Thamrin 5", City: "Jakarta Pusat",
		Latitude: ptr(-6.2), Longitude: ptr(106.82),
	})
	require.NoError(t, err)
	_, err = svc.CreateWorkshop(ctx, owner.ID, models.CreateWorkshopRequest{
		Name: "Far", Address: "Jl. Asia Afrika 1", City: "Bandung",
		Latitude: ptr(-6.91), Longitude: ptr(107.61),
	})
	require.NoError(t, err)

	all, meta, err := svc.ListWorkshops(ctx, models.WorkshopQuery{}, utils.NewPage(1, 20))
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, 2, meta.Total)

	byCity, _, err := svc.ListWorkshops(ctx, models.WorkshopQuery{City: "jakarta"}, utils.NewPage(1, 20))
	require.NoError(t, err)
	require.Len(t, byCity, 1)
	assert.Equal(t, jakarta.ID, byCity[0].ID)

	nearby, _, err := svc.ListWorkshops(ctx, models.WorkshopQuery{Lat: ptr(-6.21), Lng: ptr(106.83)}, utils.NewPage(1, 20))
	require.NoError(t, err)
	require.Len(t, nearby, 1)
	assert.Equal(t, jakarta.ID, nearby[0].ID)
	require.NotNil(t, nearby[0].Owner)
	assert.Empty(t, nearby[0].Owner.PasswordHash)

	paged, meta, err := svc.ListWorkshops(ctx, models.WorkshopQuery{}, utils.NewPage(2, 1))
	require.NoError(t, err)
	assert.Len(t, paged, 1)
	assert.False(t, meta.HasMore)
}

func TestGetWorkshopDetail(t *testing.T) {
	svc, f := newService(t)
	ctx := context.Background()
	owner := f.User(models.RoleWorkshop)
	ws := f.Workshop(owner.ID)
	f.Service(ws.ID, 100000)
	removed := f.Service(ws.ID, 50000)
	f.Mechanic(f.User(models.RoleWorkshop).ID, ws.ID)
	require.NoError(t, svc.DeleteService(ctx, ws.ID, removed.ID))

	detail, err := svc.GetWorkshop(ctx, ws.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Services, 1)
	require.Len(t, detail.Mechanics, 1)
	require.NotNil(t, detail.Mechanics[0].User)
	require.NotNil(t, detail.Owner)
	assert.Equal(t, owner.ID, detail.Owner.ID)
}

func TestUpdateAndDeleteRequireOwner(t *testing.T) {
	svc, f := newService(t)
	ctx := context.Background()
	owner := f.User(models.RoleWorkshop)
	ws := f.Workshop(owner.ID)
	stranger := models.Actor{ID: f.User(models.RoleWorkshop).ID, Role: models.RoleWorkshop}

	_, err := svc.UpdateWorkshop(ctx, stranger, ws.ID, models.UpdateWorkshopRequest{Name: ptr("Hijack")})
	assert.True(t, apperr.IsForbidden(err))

	updated, err := svc.UpdateWorkshop(ctx, models.Actor{ID: owner.ID, Role: models.RoleWorkshop}, ws.ID,
		models.UpdateWorkshopRequest{Name: ptr("Bengkel Baru"), OpenHours: &models.OpenHours{Monday: "08:00-17:00"}})
	require.NoError(t, err)
	assert.Equal(t, "Bengkel Baru", updated.Name)
	assert.Equal(t, "Jakarta", updated.City)

	assert.True(t, apperr.IsForbidden(svc.DeleteWorkshop(ctx, stranger, ws.ID)))
	require.NoError(t, svc.DeleteWorkshop(ctx, models.Actor{ID: "admin", Role: models.RoleAdmin}, ws.ID))

	_, err = svc.GetWorkshop(ctx, ws.ID)
	assert.True(t, apperr.IsNotFound(err))
}

func TestServiceCatalog(t *testing.T) {
	svc, f := newService(t)
	ctx := context.Background()
	ws := f.Workshop(f.User(models.RoleWorkshop).ID)
	other := f.Workshop(f.User(models.RoleWorkshop).ID)

	tune, err := svc.CreateService(ctx, ws.ID, models.CreateServiceRequest{Name: "Tune Up", BasePrice: 300000, EstDurationMin: 90})
	require.NoError(t, err)
	_, err = svc.CreateService(ctx, ws.ID, models.CreateServiceRequest{Name: "Brake Check", BasePrice: 80000, EstDurationMin: 30})
	require.NoError(t, err)

	services, err := svc.ListServices(ctx, ws.ID)
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, "Brake Check", services[0].Name)

	updated, err := svc.UpdateService(ctx, ws.ID, tune.ID, models.UpdateServiceRequest{BasePrice: ptr(350000.0)})
	require.NoError(t, err)
	assert.Equal(t, 350000.0, updated.BasePrice)

	_, err = svc.UpdateService(ctx, other.ID, tune.ID, models.UpdateServiceRequest{Name: ptr("Nope")})
	assert.True(t, apperr.IsNotFound(err))

	require.NoError(t, svc.DeleteService(ctx, ws.ID, tune.ID))
	services, err = svc.ListServices(ctx, ws.ID)
	require.NoError(t, err)
	assert.Len(t, services, 1)

	_, err = svc.ListServices(ctx, "missing")
	assert.True(t, apperr.IsNotFound(err))
}

func TestMechanics(t *testing.T) {
	svc, f := newService(t)
	ctx := context.Background()
	ws := f.Workshop(f.User(models.RoleWorkshop).ID)
	tech := f.User(models.RoleWorkshop)

	created, err := svc.CreateMechanic(ctx, ws.ID, models.CreateMechanicRequest{UserID: tech.ID, Specialization: []string{"engine", "electrical"}})
	require.NoError(t, err)
	assert.True(t, created.IsActive)
	assert.Equal(t, tech.Name, created.User.Name)

	_, err = svc.CreateMechanic(ctx, ws.ID, models.CreateMechanicRequest{UserID: tech.ID, Specialization: []string{"body"}})
	assert.True(t, apperr.IsConflict(err))

	customer := f.User(models.RoleCustomer)
	_, err = svc.CreateMechanic(ctx, ws.ID, models.CreateMechanicRequest{UserID: customer.ID, Specialization: []string{"body"}})
	assert.True(t, apperr.IsForbidden(err))

	_, err = svc.CreateMechanic(ctx, ws.ID, models.CreateMechanicRequest{UserID: "missing", Specialization: []string{"body"}})
	assert.True(t, apperr.IsNotFound(err))

	updated, err := svc.UpdateMechanic(ctx, ws.ID, created.ID, models.UpdateMechanicRequest{IsActive: ptr(false)})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, []string{"engine", "electrical"}, updated.Specialization)

	mechanics, err := svc.ListMechanics(ctx, ws.ID)
	require.NoError(t, err)
	require.Len(t, mechanics, 1)

	require.NoError(t, svc.DeleteMechanic(ctx, ws.ID, created.ID))
	mechanics, err = svc.ListMechanics(ctx, ws.ID)
	require.NoError(t, err)
	assert.Empty(t, mechanics)
}
