package vehicle_api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mekaniku/internal/auth"
	"mekaniku/internal/logger"
	"mekaniku/internal/models"
	"mekaniku/internal/utils"
	"mekaniku/internal/vehicle"
)

type Handler struct {
	Service *vehicle.VehicleService
	Logger  *logger.Logger
}

func NewHandler(service *vehicle.VehicleService, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/vehicles", func(r chi.Router) {
		r.Use(auth.RequireRole(models.RoleCustomer))
		r.Post("/", h.CreateVehicle)
		r.Get("/", h.ListVehicles)
		r.Get("/{id}", h.GetVehicle)
		r.Patch("/{id}", h.UpdateVehicle)
		r.Delete("/{id}", h.DeleteVehicle)
	})
}

func (h *Handler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	var req models.CreateVehicleRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	customerID := auth.UserID(r.Context())
	h.Logger.Info("API", fmt.Sprintf("CreateVehicle: customer=%s plate=%s", customerID, req.PlateNo))

	created, err := h.Service.CreateVehicle(r.Context(), customerID, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, created)
}

func (h *Handler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.Service.ListVehicles(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, vehicles)
}

func (h *Handler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	found, err := h.Service.GetVehicle(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, found)
}

func (h *Handler) UpdateVehicle(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateVehicleRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	updated, err := h.Service.UpdateVehicle(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, updated)
}

func (h *Handler) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteVehicle(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, map[string]string{"message": "Vehicle deleted successfully"})
}
