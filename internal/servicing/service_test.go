package servicing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mekaniku/internal/apperr"
	"mekaniku/internal/audit"
	"mekaniku/internal/database/dbtest"
	"mekaniku/internal/logger"
	"mekaniku/internal/models"
	"mekaniku/internal/servicing"
	servicing_db "mekaniku/internal/servicing/db"
)

func TestInspectionRequiresWorkshopStaff(t *testing.T) {
	db := dbtest.New(t)
	f := dbtest.NewFixtures(t, db)
	svc := servicing.NewServicingService(&servicing_db.DB{Bun: db}, logger.Discard())
	s := f.Scenario()
	b := s.Booking(f, models.BookingInProgress)
	ctx := context.Background()
	req := models.CreateInspectionRequest{Findings: map[string]interface{}{"brakes": "worn"}}

	outsider := f.User(models.RoleWorkshop)
	_, err := svc.CreateInspection(ctx, models.Actor{ID: outsider.ID, Role: models.RoleWorkshop}, b.ID, req)
	assert.True(t, apperr.IsForbidden(err))

	mechanic := f.User(models.RoleWorkshop)
	f.Mechanic(mechanic.ID, s.Workshop.ID)
	inspection, err := svc.CreateInspection(ctx, models.Actor{ID: mechanic.ID, Role: models.RoleWorkshop}, b.ID, req)
	require.NoError(t, err)
	assert.Equal(t, []string{}, inspection.Photos)

	_, err = svc.CreateInspection(ctx, models.Actor{ID: s.Owner.ID, Role: models.RoleWorkshop}, b.ID, req)
	assert.True(t, apperr.IsConflict(err))

	_, err = svc.CreateInspection(ctx, models.Actor{ID: "admin", Role: models.RoleAdmin}, "missing", req)
	assert.True(t, apperr.IsNotFound(err))
}

func TestWorkOrderLifecycle(t *testing.T) {
	db := dbtest.New(t)
	f := dbtest.NewFixtures(t, db)
	svc := servicing.NewServicingService(&servicing_db.DB{Bun: db}, logger.Discard())
	s := f.Scenario()
	b := s.Booking(f, models.BookingInProgress)
	ctx := context.Background()
	owner := models.Actor{ID: s.Owner.ID, Role: models.RoleWorkshop}

	wo, err := svc.CreateWorkOrder(ctx, owner, b.ID, models.CreateWorkOrderRequest{
		Tasks:      map[string]interface{}{"oil": "replace"},
		Parts:      map[string]interface{}{"filter": 1},
		LaborHours: 1.5,
		Subtotal:   200000,
	})
	require.NoError(t, err)
	assert.Equal(t, models.WorkQueued, wo.Status)

	subtotal := 250000.0
	updated, err := svc.UpdateWorkOrderStatus(ctx, owner, wo.ID, models.UpdateWorkOrderStatusRequest{
		Status:   models.WorkInProgress,
		Subtotal: &subtotal,
	})
	require.NoError(t, err)
	assert.Equal(t, models.WorkInProgress, updated.Status)
	assert.Equal(t, 250000.0, updated.Subtotal)
	assert.Equal(t, 1.5, updated.LaborHours)

	_, err = svc.UpdateWorkOrderStatus(ctx, owner, wo.ID, models.UpdateWorkOrderStatusRequest{Status: models.WorkDone})
	require.NoError(t, err)

	_, err = svc.UpdateWorkOrderStatus(ctx, owner, wo.ID, models.UpdateWorkOrderStatusRequest{Status: models.WorkQueued})
	assert.True(t, apperr.IsInvalidTransition(err))

	rewritten := 1.0
	_, err = svc.UpdateWorkOrderStatus(ctx, owner, wo.ID, models.UpdateWorkOrderStatusRequest{
		Status:   models.WorkDone,
		Subtotal: &rewritten,
	})
	assert.True(t, apperr.IsInvalidTransition(err))
	stored, err := (&servicing_db.DB{Bun: db}).GetWorkOrder(ctx, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, 250000.0, stored.Subtotal)

	logs, err := audit.ForEntity(ctx, db, models.EntityWorkOrder, wo.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.AuditActionStatusUpdate, logs[0].Action)
	assert.Equal(t, string(models.WorkQueued), logs[0].FromStatus)
	assert.Equal(t, string(models.WorkInProgress), logs[0].ToStatus)
	assert.Equal(t, string(models.WorkDone), logs[1].ToStatus)

	_, err = svc.UpdateWorkOrderStatus(ctx, owner, "missing", models.UpdateWorkOrderStatusRequest{Status: models.WorkDone})
	assert.True(t, apperr.IsNotFound(err))
}
