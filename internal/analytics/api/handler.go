package analytics_api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mekaniku/internal/analytics"
	"mekaniku/internal/auth"
	"mekaniku/internal/logger"
	"mekaniku/internal/utils"
)

// Handler handles analytics HTTP endpoints
type Handler struct {
	Service *analytics.Service
	Staff   auth.StaffChecker
	Logger  *logger.Logger
}

// NewHandler creates a new analytics handler
func NewHandler(service *analytics.Service, staff auth.StaffChecker, log *logger.Logger) *Handler {
	return &Handler{Service: service, Staff: staff, Logger: log}
}

// RegisterRoutes registers the analytics routes on a chi router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(auth.RequireWorkshopAccess(h.Staff, "id")).
		Get("/workshops/{id}/analytics", h.GetWorkshopAnalytics)
}

// GetWorkshopAnalytics returns the dashboard metrics of one workshop
func (h *Handler) GetWorkshopAnalytics(w http.ResponseWriter, r *http.Request) {
	workshopID := chi.URLParam(r, "id")

	result, err := h.Service.GetWorkshopAnalytics(r.Context(), workshopID)
	if err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("Error getting analytics for workshop %s: %v", workshopID, err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, result)
}
