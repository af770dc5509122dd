package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carelink/carelink-be/internal/accounts"
	"github.com/carelink/carelink-be/internal/http/respond"
	"github.com/carelink/carelink-be/internal/middleware"
	"github.com/carelink/carelink-be/internal/models/dto"
)

// AuthHandler owns the register, login and token refresh endpoints.
type AuthHandler struct {
	accounts *accounts.Service
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(svc *accounts.Service) *AuthHandler {
	return &AuthHandler{accounts: svc}
}

// Register attaches auth routes, relative to /api/auth.
func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.Post("/token/refresh", h.handleRefresh)
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.accounts.Register(r.Context(), middleware.ClientIP(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "User created successfully", resp)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	pair, err := h.accounts.Login(r.Context(), middleware.ClientIP(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "login successful", pair)
}

func (h *AuthHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	access, err := h.accounts.Refresh(r.Context(), req.Refresh)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, "token refreshed", access)
}
