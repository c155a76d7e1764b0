// Package servicing covers the workshop-side records of a booking:
// inspections and work orders.
package servicing

import (
	"context"
	"fmt"
	"time"

	"mekaniku/internal/apperr"
	"mekaniku/internal/audit"
	"mekaniku/internal/logger"
	"mekaniku/internal/models"
	"mekaniku/internal/utils"
)

type DBLayer interface {
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	IsWorkshopStaff(ctx context.Context, userID, workshopID string) (bool, error)
	CreateInspection(ctx context.Context, i *models.Inspection) error
	CreateWorkOrder(ctx context.Context, wo *models.WorkOrder) error
	GetWorkOrder(ctx context.Context, id string) (*models.WorkOrder, error)
	UpdateWorkOrder(ctx context.Context, wo *models.WorkOrder, from models.WorkStatus, entry audit.Entry) error
}

type ServicingService struct {
	DB     DBLayer
	Logger *logger.Logger
}

func NewServicingService(store DBLayer, log *logger.Logger) *ServicingService {
	return &ServicingService{DB: store, Logger: log}
}

func (s *ServicingService) CreateInspection(ctx context.Context, actor models.Actor, bookingID string, req models.CreateInspectionRequest) (*models.Inspection, error) {
	booking, err := s.staffBooking(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}

	photos := req.Photos
	if photos == nil {
		photos = []string{}
	}
	now := time.Now().UTC()
	inspection := &models.Inspection{
		ID:        utils.GenerateID(),
		BookingID: booking.ID,
		Findings:  req.Findings,
		Photos:    photos,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.DB.CreateInspection(ctx, inspection); err != nil {
		return nil, err
	}
	s.Logger.LogBooking("INSPECTION", booking.ID, fmt.Sprintf("inspection recorded by %s", actor.ID))
	return inspection, nil
}

func (s *ServicingService) CreateWorkOrder(ctx context.Context, actor models.Actor, bookingID string, req models.CreateWorkOrderRequest) (*models.WorkOrder, error) {
	booking, err := s.staffBooking(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	wo := &models.WorkOrder{
		ID:         utils.GenerateID(),
		BookingID:  booking.ID,
		Tasks:      req.Tasks,
		Parts:      req.Parts,
		LaborHours: req.LaborHours,
		Subtotal:   req.Subtotal,
		Status:     models.WorkQueued,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.DB.CreateWorkOrder(ctx, wo); err != nil {
		return nil, err
	}
	s.Logger.LogBooking("WORKORDER", booking.ID, fmt.Sprintf("work order %s queued", wo.ID))
	return wo, nil
}

// UpdateWorkOrderStatus changes the status and any supplied fields. A DONE
// work order is frozen.
func (s *ServicingService) UpdateWorkOrderStatus(ctx context.Context, actor models.Actor, id string, req models.UpdateWorkOrderStatusRequest) (*models.WorkOrder, error) {
	wo, err := s.DB.GetWorkOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.staffBooking(ctx, actor, wo.BookingID); err != nil {
		return nil, err
	}

	from := wo.Status
	if from == models.WorkDone {
		return nil, apperr.InvalidTransition(string(from), string(req.Status))
	}

	wo.Status = req.Status
	if req.Tasks != nil {
		wo.Tasks = req.Tasks
	}
	if req.Parts != nil {
		wo.Parts = req.Parts
	}
	if req.LaborHours != nil {
		wo.LaborHours = *req.LaborHours
	}
	if req.Subtotal != nil {
		wo.Subtotal = *req.Subtotal
	}

	entry := audit.Entry{
		ActorID:    actor.ID,
		EntityType: models.EntityWorkOrder,
		EntityID:   wo.ID,
		Action:     models.AuditActionStatusUpdate,
		FromStatus: string(from),
		ToStatus:   string(req.Status),
	}
	if err := s.DB.UpdateWorkOrder(ctx, wo, from, entry); err != nil {
		return nil, err
	}
	return wo, nil
}

// staffBooking loads the booking and checks that actor works at its workshop.
func (s *ServicingService) staffBooking(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error) {
	booking, err := s.DB.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleAdmin {
		return booking, nil
	}
	staff, err := s.DB.IsWorkshopStaff(ctx, actor.ID, booking.WorkshopID)
	if err != nil {
		return nil, fmt.Errorf("check workshop staff: %w", err)
	}
	if !staff {
		return nil, apperr.Forbidden("You do not work at this booking's workshop")
	}
	return booking, nil
}
