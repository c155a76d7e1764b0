package servicing_api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mekaniku/internal/auth"
	"mekaniku/internal/logger"
	"mekaniku/internal/models"
	"mekaniku/internal/servicing"
	"mekaniku/internal/utils"
)

type Handler struct {
	Service *servicing.ServicingService
	Logger  *logger.Logger
}

func NewHandler(service *servicing.ServicingService, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(models.RoleWorkshop, models.RoleAdmin))
		r.Post("/bookings/{id}/inspection", h.CreateInspection)
		r.Post("/bookings/{id}/workorder", h.CreateWorkOrder)
		r.Patch("/workorders/{id}/status", h.UpdateWorkOrderStatus)
	})
}

func (h *Handler) CreateInspection(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequestActor(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req models.CreateInspectionRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	created, err := h.Service.CreateInspection(r.Context(), actor, chi.URLParam(r, "id"), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, created)
}

func (h *Handler) CreateWorkOrder(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequestActor(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req models.CreateWorkOrderRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	created, err := h.Service.CreateWorkOrder(r.Context(), actor, chi.URLParam(r, "id"), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, created)
}

func (h *Handler) UpdateWorkOrderStatus(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequestActor(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req models.UpdateWorkOrderStatusRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	h.Logger.Info("API", fmt.Sprintf("UpdateWorkOrderStatus: workorder=%s status=%s", id, req.Status))

	updated, err := h.Service.UpdateWorkOrderStatus(r.Context(), actor, id, req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, updated)
}
