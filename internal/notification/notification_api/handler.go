package notification_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mekaniku/internal/auth"
	"mekaniku/internal/logger"
	"mekaniku/internal/notification"
	"mekaniku/internal/sse"
	"mekaniku/internal/utils"
)

const DefaultPingInterval = 30 * time.Second

type Handler struct {
	Service      *notification.NotificationService
	Broker       *sse.NotificationBroker
	Logger       *logger.Logger
	PingInterval time.Duration
	// Done is closed when the server starts shutting down; open streams
	// return so Shutdown can drain their connections.
	Done <-chan struct{}
}

func NewHandler(service *notification.NotificationService, broker *sse.NotificationBroker, log *logger.Logger) *Handler {
	return &Handler{Service: service, Broker: broker, Logger: log, PingInterval: DefaultPingInterval}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/stream", h.Stream)
		r.Post("/mark-all-read", h.MarkAllRead)
		r.Patch("/{id}/read", h.MarkRead)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequestActor(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	items, meta, err := h.Service.List(r.Context(), actor.ID, utils.PageFromRequest(r))
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListNotifications: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WritePaginated(w, items, meta)
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequestActor(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	n, err := h.Service.MarkRead(r.Context(), actor.ID, chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, n)
}

func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequestActor(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	if _, err := h.Service.MarkAllRead(r.Context(), actor.ID); err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, map[string]string{"message": "All notifications marked as read"})
}

// Stream pushes the caller's notifications as server-sent events until the
// client disconnects or Done is closed.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequestActor(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	setupSSEHeaders(w)
	ctx := r.Context()
	events := h.Broker.Subscribe(ctx, actor.ID)

	writeEvent(w, "connected", fmt.Sprintf("%d", time.Now().UnixMilli()), map[string]string{
		"type":    "connected",
		"message": "Notification stream connected",
	})
	flusher.Flush()
	h.Logger.Info("SSE", fmt.Sprintf("Notification stream opened for user %s", actor.ID))

	interval := h.PingInterval
	if interval <= 0 {
		interval = DefaultPingInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case n, ok := <-events:
			if !ok {
				return
			}
			writeEvent(w, "notification", n.ID, n)
			flusher.Flush()

		case <-ticker.C:
			writeEvent(w, "ping", "", map[string]string{"type": "ping"})
			flusher.Flush()

		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Notification stream closed for user %s", actor.ID))
			return

		case <-h.Done:
			writeEvent(w, "shutdown", "", map[string]string{"type": "shutdown"})
			flusher.Flush()
			h.Logger.Debug("SSE", fmt.Sprintf("Notification stream for user %s ended by shutdown", actor.ID))
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, event, id string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if id != "" {
		fmt.Fprintf(w, "id: %s\n", id)
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}
