package report_api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"mekaniku/internal/auth"
	"mekaniku/internal/logger"
	"mekaniku/internal/models"
	"mekaniku/internal/report"
	"mekaniku/internal/utils"
)

type Handler struct {
	Service *report.ReportService
	Logger  *logger.Logger
}

func NewHandler(service *report.ReportService, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(auth.RequireRole(models.RoleWorkshop, models.RoleAdmin)).Post("/bookings/{id}/report", h.GenerateReport)
	r.Post("/reports/verify", h.VerifyReport)
	r.Get("/reports/{id}", h.GetReport)
}

func (h *Handler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequestActor(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req models.GenerateReportRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	created, err := h.Service.Generate(r.Context(), actor, chi.URLParam(r, "id"), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, created)
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	found, err := h.Service.GetReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, found)
}

func (h *Handler) VerifyReport(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyReportRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	result, err := h.Service.Verify(r.Context(), req.Code)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, result)
}
