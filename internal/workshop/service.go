package workshop

import (
	"context"
	"fmt"
	"math"
	"time"

	"mekaniku/internal/apperr"
	"mekaniku/internal/logger"
	"mekaniku/internal/models"
	"mekaniku/internal/utils"
	"mekaniku/internal/workshop/db"
)

const (
	DefaultRadiusKm = 10.0
	kmPerDegree     = 111.0
)

type DBLayer interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	CreateWorkshop(ctx context.Context, w *models.Workshop) error
	ListWorkshops(ctx context.Context, q db.ListQuery) ([]models.Workshop, int, error)
	GetWorkshop(ctx context.Context, id string) (*models.Workshop, error)
	GetWorkshopDetail(ctx context.Context, id string) (*models.Workshop, error)
	UpdateWorkshop(ctx context.Context, w *models.Workshop) error
	SoftDeleteWorkshop(ctx context.Context, id string) error

	CreateService(ctx context.Context, s *models.ServiceCatalog) error
	ListServices(ctx context.Context, workshopID string) ([]models.ServiceCatalog, error)
	GetService(ctx context.Context, workshopID, id string) (*models.ServiceCatalog, error)
	UpdateService(ctx context.Context, s *models.ServiceCatalog) error
	SoftDeleteService(ctx context.Context, id string) error

	MechanicExistsForUser(ctx context.Context, userID string) (bool, error)
	CreateMechanic(ctx context.Context, m *models.Mechanic) error
	ListMechanics(ctx context.Context, workshopID string) ([]models.Mechanic, error)
	GetMechanic(ctx context.Context, workshopID, id string) (*models.Mechanic, error)
	UpdateMechanic(ctx context.Context, m *models.Mechanic) error
	DeleteMechanic(ctx context.Context, id string) error
}

type WorkshopService struct {
	DB     DBLayer
	Logger *logger.Logger
}

func NewWorkshopService(store DBLayer, log *logger.Logger) *WorkshopService {
	return &WorkshopService{DB: store, Logger: log}
}

// BoundsAround returns the rectangle of radiusKm around (lat, lng). The
// longitude span widens with latitude.
func BoundsAround(lat, lng, radiusKm float64) db.Bounds {
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}
	latDelta := radiusKm / kmPerDegree
	lngDelta := radiusKm / (kmPerDegree * math.Cos(lat*math.Pi/180))
	return db.Bounds{
		MinLat: lat - latDelta,
		MaxLat: lat + latDelta,
		MinLng: lng - lngDelta,
		MaxLng: lng + lngDelta,
	}
}

func (s *WorkshopService) CreateWorkshop(ctx context.Context, ownerID string, req models.CreateWorkshopRequest) (*models.Workshop, error) {
	owner, err := s.DB.GetUser(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if owner.Role != models.RoleWorkshop && owner.Role != models.RoleAdmin {
		return nil, apperr.Forbidden("Only workshop accounts can own a workshop")
	}

	now := time.Now().UTC()
	workshop := &models.Workshop{
		ID:        utils.GenerateID(),
		OwnerID:   owner.ID,
		Name:      req.Name,
		Address:   req.Address,
		City:      req.City,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		OpenHours: req.OpenHours,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.DB.CreateWorkshop(ctx, workshop); err != nil {
		return nil, err
	}
	s.Logger.Info("WORKSHOP", fmt.Sprintf("Workshop %s created by %s", workshop.ID, owner.ID))
	return workshop, nil
}

func (s *WorkshopService) ListWorkshops(ctx context.Context, query models.WorkshopQuery, page utils.Page) ([]models.Workshop, utils.PageMeta, error) {
	q := db.ListQuery{City: query.City, Limit: page.Limit, Offset: page.Offset()}
	if query.Lat != nil && query.Lng != nil {
		bounds := BoundsAround(*query.Lat, *query.Lng, query.RadiusKm)
		q.Bounds = &bounds
	}

	workshops, total, err := s.DB.ListWorkshops(ctx, q)
	if err != nil {
		return nil, utils.PageMeta{}, err
	}
	if workshops == nil {
		workshops = []models.Workshop{}
	}
	return workshops, page.Meta(total), nil
}

func (s *WorkshopService) GetWorkshop(ctx context.Context, id string) (*models.Workshop, error) {
	return s.DB.GetWorkshopDetail(ctx, id)
}

func (s *WorkshopService) UpdateWorkshop(ctx context.Context, actor models.Actor, id string, req models.UpdateWorkshopRequest) (*models.Workshop, error) {
	workshop, err := s.ownedWorkshop(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		workshop.Name = *req.Name
	}
	if req.Address != nil {
		workshop.Address = *req.Address
	}
	if req.City != nil {
		workshop.City = *req.City
	}
	if req.Latitude != nil {
		workshop.Latitude = req.Latitude
	}
	if req.Longitude != nil {
		workshop.Longitude = req.Longitude
	}
	if req.OpenHours != nil {
		workshop.OpenHours = req.OpenHours
	}
	if err := s.DB.UpdateWorkshop(ctx, workshop); err != nil {
		return nil, fmt.Errorf("update workshop: %w", err)
	}
	return workshop, nil
}

func (s *WorkshopService) DeleteWorkshop(ctx context.Context, actor models.Actor, id string) error {
	if _, err := s.ownedWorkshop(ctx, actor, id); err != nil {
		return err
	}
	if err := s.DB.SoftDeleteWorkshop(ctx, id); err != nil {
		return fmt.Errorf("delete workshop: %w", err)
	}
	s.Logger.Info("WORKSHOP", fmt.Sprintf("Workshop %s deleted by %s", id, actor.ID))
	return nil
}

func (s *WorkshopService) ownedWorkshop(ctx context.Context, actor models.Actor, id string) (*models.Workshop, error) {
	workshop, err := s.DB.GetWorkshop(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin && workshop.OwnerID != actor.ID {
		return nil, apperr.Forbidden("Only the workshop owner can change this workshop")
	}
	return workshop, nil
}

func (s *WorkshopService) CreateService(ctx context.Context, workshopID string, req models.CreateServiceRequest) (*models.ServiceCatalog, error) {
	if _, err := s.DB.GetWorkshop(ctx, workshopID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	service := &models.ServiceCatalog{
		ID:             utils.GenerateID(),
		WorkshopID:     workshopID,
		Name:           req.Name,
		Description:    req.Description,
		BasePrice:      req.BasePrice,
		EstDurationMin: req.EstDurationMin,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.DB.CreateService(ctx, service); err != nil {
		return nil, err
	}
	return service, nil
}

func (s *WorkshopService) ListServices(ctx context.Context, workshopID string) ([]models.ServiceCatalog, error) {
	if _, err := s.DB.GetWorkshop(ctx, workshopID); err != nil {
		return nil, err
	}
	return s.DB.ListServices(ctx, workshopID)
}

func (s *WorkshopService) UpdateService(ctx context.Context, workshopID, id string, req models.UpdateServiceRequest) (*models.ServiceCatalog, error) {
	service, err := s.DB.GetService(ctx, workshopID, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		service.Name = *req.Name
	}
	if req.Description != nil {
		service.Description = *req.Description
	}
	if req.BasePrice != nil {
		service.BasePrice = *req.BasePrice
	}
	if req.EstDurationMin != nil {
		service.EstDurationMin = *req.EstDurationMin
	}
	if err := s.DB.UpdateService(ctx, service); err != nil {
		return nil, fmt.Errorf("update service: %w", err)
	}
	return service, nil
}

func (s *WorkshopService) DeleteService(ctx context.Context, workshopID, id string) error {
	if _, err := s.DB.GetService(ctx, workshopID, id); err != nil {
		return err
	}
	return s.DB.SoftDeleteService(ctx, id)
}

// CreateMechanic attaches an existing WORKSHOP user to the workshop. A user
// can be a mechanic of one workshop only.
func (s *WorkshopService) CreateMechanic(ctx context.Context, workshopID string, req models.CreateMechanicRequest) (*models.Mechanic, error) {
	if _, err := s.DB.GetWorkshop(ctx, workshopID); err != nil {
		return nil, err
	}
	user, err := s.DB.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleWorkshop {
		return nil, apperr.Forbidden("Mechanics must have the WORKSHOP role")
	}

	exists, err := s.DB.MechanicExistsForUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("check mechanic: %w", err)
	}
	if exists {
		return nil, apperr.Conflict("User is already registered as a mechanic")
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	now := time.Now().UTC()
	mechanic := &models.Mechanic{
		ID:             utils.GenerateID(),
		UserID:         user.ID,
		WorkshopID:     workshopID,
		Specialization: req.Specialization,
		IsActive:       active,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.DB.CreateMechanic(ctx, mechanic); err != nil {
		return nil, err
	}
	mechanic.User = &models.User{ID: user.ID, Name: user.Name, Email: user.Email}
	s.Logger.Info("WORKSHOP", fmt.Sprintf("Mechanic %s added to workshop %s", user.ID, workshopID))
	return mechanic, nil
}

func (s *WorkshopService) ListMechanics(ctx context.Context, workshopID string) ([]models.Mechanic, error) {
	if _, err := s.DB.GetWorkshop(ctx, workshopID); err != nil {
		return nil, err
	}
	return s.DB.ListMechanics(ctx, workshopID)
}

func (s *WorkshopService) UpdateMechanic(ctx context.Context, workshopID, id string, req models.UpdateMechanicRequest) (*models.Mechanic, error) {
	mechanic, err := s.DB.GetMechanic(ctx, workshopID, id)
	if err != nil {
		return nil, err
	}
	if req.Specialization != nil {
		mechanic.Specialization = req.Specialization
	}
	if req.IsActive != nil {
		mechanic.IsActive = *req.IsActive
	}
	if err := s.DB.UpdateMechanic(ctx, mechanic); err != nil {
		return nil, fmt.Errorf("update mechanic: %w", err)
	}
	return mechanic, nil
}

func (s *WorkshopService) DeleteMechanic(ctx context.Context, workshopID, id string) error {
	if _, err := s.DB.GetMechanic(ctx, workshopID, id); err != nil {
		return err
	}
	return s.DB.DeleteMechanic(ctx, id)
}
