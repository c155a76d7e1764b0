package chat_api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"mekaniku/internal/auth"
	"mekaniku/internal/chat"
	"mekaniku/internal/logger"
	"mekaniku/internal/models"
	"mekaniku/internal/utils"
)

type Handler struct {
	Service *chat.ChatService
	Logger  *logger.Logger
}

func NewHandler(service *chat.ChatService, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

// RegisterRoutes mounts the chat endpoints under /chats.
func (h *Handler) RegisterRoutes(r chi.Router) {
	staff := auth.RequireRole(models.RoleWorkshop, models.RoleAdmin)

	r.Route("/chats", func(r chi.Router) {
		r.With(staff).Post("/", h.CreateConversation)
		r.Post("/presence", h.SetPresence)
		r.Get("/{id}", h.GetConversation)
		r.Get("/{id}/messages", h.ListMessages)
		r.Post("/{id}/messages", h.SendMessage)
		r.With(staff).Post("/{id}/members", h.AddMember)
		r.With(staff).Delete("/{id}/members/{userId}", h.RemoveMember)
		r.Post("/{id}/typing", h.SetTyping)
	})
}

func (h *Handler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	var req chat.CreateConversationRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	chatID, err := h.Service.CreateConversation(r.Context(), req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("CreateConversation: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, map[string]string{"chatId": chatID})
}

func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequestActor(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	conv, err := h.Service.GetConversation(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, conv)
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequestActor(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	messages, err := h.Service.ListMessages(r.Context(), actor, chi.URLParam(r, "id"), limit)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequestActor(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req chat.SendMessageRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	messageID, err := h.Service.SendMessage(r.Context(), actor, chi.URLParam(r, "id"), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, map[string]string{"messageId": messageID})
}

func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequestActor(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req chat.AddMemberRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	chatID := chi.URLParam(r, "id")

	if err := h.Service.AddMember(r.Context(), actor, chatID, req.UserID); err != nil {
		utils.WriteError(w, err)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("AddMember: chat=%s user=%s", chatID, req.UserID))
	utils.WriteSuccess(w, http.StatusOK, map[string]string{"message": "Member added successfully"})
}

func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequestActor(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	chatID := chi.URLParam(r, "id")
	userID := chi.URLParam(r, "userId")

	if err := h.Service.RemoveMember(r.Context(), actor, chatID, userID); err != nil {
		utils.WriteError(w, err)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("RemoveMember: chat=%s user=%s", chatID, userID))
	utils.WriteSuccess(w, http.StatusOK, map[string]string{"message": "Member removed successfully"})
}

func (h *Handler) SetTyping(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequestActor(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req chat.TypingRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	if err := h.Service.SetTyping(r.Context(), actor, chi.URLParam(r, "id"), req.IsTyping); err != nil {
		utils.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetPresence(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.RequestActor(r)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var req chat.PresenceRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	if err := h.Service.SetPresence(r.Context(), actor.ID, req.Online); err != nil {
		utils.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
