package booking_api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mekaniku/internal/apperr"
	"mekaniku/internal/auth"
	"mekaniku/internal/booking"
	"mekaniku/internal/logger"
	"mekaniku/internal/models"
	"mekaniku/internal/utils"
)

type Handler struct {
	Service *booking.BookingService
	Logger  *logger.Logger
}

func NewHandler(service *booking.BookingService, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

// RegisterRoutes mounts booking routes with flat paths; payment, review and
// servicing handlers share the /bookings/{id} prefix on the same router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(auth.RequireRole(models.RoleCustomer)).Post("/bookings", h.CreateBooking)
	r.Get("/bookings", h.ListBookings)
	r.Get("/bookings/{id}", h.GetBooking)
	r.Post("/bookings/{id}/confirm", h.transition(h.Service.Confirm))
	r.Post("/bookings/{id}/cancel", h.transition(h.Service.Cancel))
	r.Post("/bookings/{id}/start", h.transition(h.Service.Start))
	r.Post("/bookings/{id}/complete", h.transition(h.Service.Complete))
	r.Post("/bookings/{id}/no-show", h.transition(h.Service.MarkNoShow))
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequestActor(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req models.CreateBookingRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("CreateBooking: customer=%s workshop=%s service=%s", actor.ID, req.WorkshopID, req.ServiceID))

	created, err := h.Service.CreateBooking(r.Context(), actor.ID, req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateBooking: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, created)
}

func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequestActor(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	filter := models.BookingFilter{WorkshopID: r.URL.Query().Get("workshopId")}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := models.ParseBookingStatus(raw)
		if err != nil {
			utils.WriteError(w, apperr.Validation(err.Error(), nil))
			return
		}
		filter.Status = status
	}

	bookings, meta, err := h.Service.ListBookings(r.Context(), actor, filter, utils.PageFromRequest(r))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WritePaginated(w, bookings, meta)
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequestActor(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	found, err := h.Service.GetBooking(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, found)
}

type transitionFunc func(ctx context.Context, id string, actor models.Actor) (*models.Booking, error)

func (h *Handler) transition(fn transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := auth.RequestActor(r)
		if err != nil {
			utils.WriteError(w, err)
			return
		}
		id := chi.URLParam(r, "id")

		updated, err := fn(r.Context(), id, actor)
		if err != nil {
			h.Logger.Warn("API", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
			utils.WriteError(w, err)
			return
		}
		utils.WriteSuccess(w, http.StatusOK, updated)
	}
}
