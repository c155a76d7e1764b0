package vehicle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mekaniku/internal/apperr"
	"mekaniku/internal/logger"
	"mekaniku/internal/models"
	"mekaniku/internal/utils"
)

type DBLayer interface {
	CreateVehicle(ctx context.Context, v *models.Vehicle) error
	ListVehicles(ctx context.Context, customerID string) ([]models.Vehicle, error)
	GetVehicle(ctx context.Context, id string) (*models.Vehicle, error)
	UpdateVehicle(ctx context.Context, v *models.Vehicle) error
	HasBookings(ctx context.Context, vehicleID string) (bool, error)
	DeleteVehicle(ctx context.Context, id string) error
}

type VehicleService struct {
	DB     DBLayer
	Logger *logger.Logger
}

func NewVehicleService(store DBLayer, log *logger.Logger) *VehicleService {
	return &VehicleService{DB: store, Logger: log}
}

func (s *VehicleService) CreateVehicle(ctx context.Context, customerID string, req models.CreateVehicleRequest) (*models.Vehicle, error) {
	if err := checkYear(req.Year); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	vehicle := &models.Vehicle{
		ID:         utils.GenerateID(),
		CustomerID: customerID,
		PlateNo:    normalizePlate(req.PlateNo),
		Brand:      req.Brand,
		Model:      req.Model,
		Year:       req.Year,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.DB.CreateVehicle(ctx, vehicle); err != nil {
		return nil, err
	}
	return vehicle, nil
}

func (s *VehicleService) ListVehicles(ctx context.Context, customerID string) ([]models.Vehicle, error) {
	return s.DB.ListVehicles(ctx, customerID)
}

// GetVehicle hides vehicles of other customers behind NotFound.
func (s *VehicleService) GetVehicle(ctx context.Context, customerID, id string) (*models.Vehicle, error) {
	vehicle, err := s.DB.GetVehicle(ctx, id)
	if err != nil {
		return nil, err
	}
	if vehicle.CustomerID != customerID {
		return nil, apperr.NotFound("Vehicle")
	}
	return vehicle, nil
}

func (s *VehicleService) UpdateVehicle(ctx context.Context, customerID, id string, req models.UpdateVehicleRequest) (*models.Vehicle, error) {
	vehicle, err := s.GetVehicle(ctx, customerID, id)
	if err != nil {
		return nil, err
	}
	if req.PlateNo != nil {
		vehicle.PlateNo = normalizePlate(*req.PlateNo)
	}
	if req.Brand != nil {
		vehicle.Brand = *req.Brand
	}
	if req.Model != nil {
		vehicle.Model = *req.Model
	}
	if req.Year != nil {
		if err := checkYear(*req.Year); err != nil {
			return nil, err
		}
		vehicle.Year = *req.Year
	}
	if err := s.DB.UpdateVehicle(ctx, vehicle); err != nil {
		return nil, fmt.Errorf("update vehicle: %w", err)
	}
	return vehicle, nil
}

func (s *VehicleService) DeleteVehicle(ctx context.Context, customerID, id string) error {
	if _, err := s.GetVehicle(ctx, customerID, id); err != nil {
		return err
	}
	booked, err := s.DB.HasBookings(ctx, id)
	if err != nil {
		return fmt.Errorf("check vehicle bookings: %w", err)
	}
	if booked {
		return apperr.Conflict("Vehicle has bookings and cannot be deleted")
	}
	if err := s.DB.DeleteVehicle(ctx, id); err != nil {
		return fmt.Errorf("delete vehicle: %w", err)
	}
	s.Logger.Info("API", fmt.Sprintf("Vehicle %s deleted by %s", id, customerID))
	return nil
}

func checkYear(year int) error {
	if max := time.Now().UTC().Year() + 1; year > max {
		return apperr.Validation(fmt.Sprintf("year must be at most %d", max), nil)
	}
	return nil
}

func normalizePlate(plate string) string {
	return strings.ToUpper(strings.Join(strings.Fields(plate), " "))
}
