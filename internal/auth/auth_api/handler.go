package auth_api

import (
	"fmt"
	"net/http"

	"mekaniku/internal/apperr"
	"mekaniku/internal/auth"
	"mekaniku/internal/logger"
	"mekaniku/internal/models"
	"mekaniku/internal/utils"
)

type Handler struct {
	Service *auth.AuthService
	Logger  *logger.Logger
}

func NewHandler(service *auth.AuthService, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("Register: email=%s role=%s", req.Email, req.Role))

	resp, err := h.Service.Register(r.Context(), req)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Register: %v", err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, resp)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	resp, err := h.Service.Login(r.Context(), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("Login: user=%s", resp.User.ID))
	utils.WriteSuccess(w, http.StatusOK, resp)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if err := utils.DecodeAndValidate(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	resp, err := h.Service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, resp.TokenPair)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		utils.WriteError(w, apperr.Unauthorized("Authentication required"))
		return
	}

	resp, err := h.Service.Me(r.Context(), actor)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, resp)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token, _ := auth.ExtractTokenFromRequest(r)

	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if r.ContentLength > 0 {
		if err := utils.DecodeAndValidate(r, &body); err != nil {
			utils.WriteError(w, err)
			return
		}
	}

	_ = h.Service.Logout(r.Context(), token, body.RefreshToken)
	h.Logger.Info("API", fmt.Sprintf("Logout: user=%s", auth.UserID(r.Context())))
	utils.WriteSuccess(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}
