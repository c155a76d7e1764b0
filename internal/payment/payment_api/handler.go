package payment_api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mekaniku/internal/auth"
	"mekaniku/internal/logger"
	"mekaniku/internal/models"
	"mekaniku/internal/payment"
	"mekaniku/internal/utils"
)

type Handler struct {
	Service *payment.PaymentService
	Logger  *logger.Logger
}

func NewHandler(service *payment.PaymentService, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/bookings/{id}/pay", h.Pay)
	r.Get("/payments/{id}", h.GetPayment)
}

func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequestActor(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req models.PaymentRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	bookingID := chi.URLParam(r, "id")
	h.Logger.Info("API", fmt.Sprintf("Pay: booking=%s method=%s amount=%s", bookingID, req.Method, utils.FormatAmount(req.Amount)))

	created, err := h.Service.Pay(r.Context(), actor, bookingID, req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Pay: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, created)
}

func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequestActor(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	found, err := h.Service.GetPayment(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, found)
}
