package workshop_api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"mekaniku/internal/apperr"
	"mekaniku/internal/auth"
	"mekaniku/internal/logger"
	"mekaniku/internal/models"
	"mekaniku/internal/utils"
	"mekaniku/internal/workshop"
)

type Handler struct {
	Service *workshop.WorkshopService
	Staff   auth.StaffChecker
	Logger  *logger.Logger
}

func NewHandler(service *workshop.WorkshopService, staff auth.StaffChecker, log *logger.Logger) *Handler {
	return &Handler{Service: service, Staff: staff, Logger: log}
}

func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/workshops", h.ListWorkshops)
	r.Get("/workshops/{id}", h.GetWorkshop)
	r.Get("/workshops/{id}/services", h.ListServices)
	r.Get("/workshops/{id}/mechanics", h.ListMechanics)
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(auth.RequireRole(models.RoleWorkshop, models.RoleAdmin)).Post("/workshops", h.CreateWorkshop)
	r.Patch("/workshops/{id}", h.UpdateWorkshop)
	r.Delete("/workshops/{id}", h.DeleteWorkshop)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireWorkshopAccess(h.Staff, "id"))
		r.Post("/workshops/{id}/services", h.CreateService)
		r.Patch("/workshops/{id}/services/{serviceId}", h.UpdateService)
		r.Delete("/workshops/{id}/services/{serviceId}", h.DeleteService)
		r.Post("/workshops/{id}/mechanics", h.CreateMechanic)
		r.Patch("/workshops/{id}/mechanics/{mechanicId}", h.UpdateMechanic)
		r.Delete("/workshops/{id}/mechanics/{mechanicId}", h.DeleteMechanic)
	})
}

func (h *Handler) CreateWorkshop(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequestActor(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req models.CreateWorkshopRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("CreateWorkshop: owner=%s name=%q", actor.ID, req.Name))

	created, err := h.Service.CreateWorkshop(r.Context(), actor.ID, req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateWorkshop: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, created)
}

func (h *Handler) ListWorkshops(w http.ResponseWriter, r *http.Request) {
	query, err := parseWorkshopQuery(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	workshops, meta, err := h.Service.ListWorkshops(r.Context(), query, utils.PageFromRequest(r))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WritePaginated(w, workshops, meta)
}

func parseWorkshopQuery(r *http.Request) (models.WorkshopQuery, error) {
	values := r.URL.Query()
	query := models.WorkshopQuery{City: values.Get("city")}

	parse := func(name string) (*float64, error) {
		raw := values.Get(name)
		if raw == "" {
			return nil, nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, apperr.Validation(fmt.Sprintf("%s must be a number", name), nil)
		}
		return &v, nil
	}

	var err error
	if query.Lat, err = parse("lat"); err != nil {
		return query, err
	}
	if query.Lng, err = parse("lng"); err != nil {
		return query, err
	}
	radius, err := parse("radius")
	if err != nil {
		return query, err
	}
	if radius != nil {
		query.RadiusKm = *radius
	}
	return query, nil
}

func (h *Handler) GetWorkshop(w http.ResponseWriter, r *http.Request) {
	found, err := h.Service.GetWorkshop(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, found)
}

func (h *Handler) UpdateWorkshop(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequestActor(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req models.UpdateWorkshopRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	updated, err := h.Service.UpdateWorkshop(r.Context(), actor, chi.URLParam(r, "id"), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, updated)
}

func (h *Handler) DeleteWorkshop(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequestActor(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if err := h.Service.DeleteWorkshop(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, map[string]string{"message": "Workshop deleted successfully"})
}

func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	var req models.CreateServiceRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	created, err := h.Service.CreateService(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, created)
}

func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.Service.ListServices(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, services)
}

func (h *Handler) UpdateService(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateServiceRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	updated, err := h.Service.UpdateService(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "serviceId"), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, updated)
}

func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteService(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "serviceId")); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, map[string]string{"message": "Service deleted successfully"})
}

func (h *Handler) CreateMechanic(w http.ResponseWriter, r *http.Request) {
	var req models.CreateMechanicRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	created, err := h.Service.CreateMechanic(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.Logger.Warn("API", fmt.Sprintf("CreateMechanic: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, created)
}

func (h *Handler) ListMechanics(w http.ResponseWriter, r *http.Request) {
	mechanics, err := h.Service.ListMechanics(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, mechanics)
}

func (h *Handler) UpdateMechanic(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateMechanicRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	updated, err := h.Service.UpdateMechanic(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "mechanicId"), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, updated)
}

func (h *Handler) DeleteMechanic(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteMechanic(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "mechanicId")); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, map[string]string{"message": "Mechanic removed successfully"})
}
