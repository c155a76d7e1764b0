package review_api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"mekaniku/internal/auth"
	"mekaniku/internal/logger"
	"mekaniku/internal/models"
	"mekaniku/internal/review"
	"mekaniku/internal/utils"
)

type Handler struct {
	Service *review.Service
	Logger  *logger.Logger
}

func NewHandler(service *review.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(auth.RequireRole(models.RoleCustomer)).Post("/bookings/{id}/review", h.CreateReview)
}

func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var req models.CreateReviewRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	created, err := h.Service.Create(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, created)
}
