package consultation_api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mekaniku/internal/apperr"
	"mekaniku/internal/auth"
	"mekaniku/internal/consultation"
	"mekaniku/internal/logger"
	"mekaniku/internal/models"
	"mekaniku/internal/utils"
)

type Handler struct {
	Service *consultation.ConsultationService
	Logger  *logger.Logger
}

func NewHandler(service *consultation.ConsultationService, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/consultations", func(r chi.Router) {
		r.With(auth.RequireRole(models.RoleCustomer)).Post("/", h.CreateConsultation)
		r.Get("/", h.ListConsultations)
		r.Get("/{id}", h.GetConsultation)
		r.Patch("/{id}/close", h.CloseConsultation)
	})
}

func (h *Handler) CreateConsultation(w http.ResponseWriter, r *http.Request) {
	var req models.CreateConsultationRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	customerID := auth.UserID(r.Context())
	h.Logger.Info("API", fmt.Sprintf("CreateConsultation: customer=%s workshop=%s", customerID, req.WorkshopID))

	created, err := h.Service.CreateConsultation(r.Context(), customerID, req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateConsultation: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, created)
}

func (h *Handler) ListConsultations(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequestActor(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	var status models.ConsultationStatus
	switch raw := models.ConsultationStatus(r.URL.Query().Get("status")); raw {
	case "":
	case models.ConsultationOpen, models.ConsultationClosed:
		status = raw
	default:
		utils.WriteError(w, apperr.Validation(fmt.Sprintf("unknown consultation status %q", raw), nil))
		return
	}

	consultations, meta, err := h.Service.ListConsultations(r.Context(), actor, status, utils.PageFromRequest(r))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WritePaginated(w, consultations, meta)
}

func (h *Handler) GetConsultation(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequestActor(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	found, err := h.Service.GetConsultation(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, found)
}

func (h *Handler) CloseConsultation(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequestActor(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	closed, err := h.Service.CloseConsultation(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, closed)
}
