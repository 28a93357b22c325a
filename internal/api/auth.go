package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/studypal/server/internal/identity"
)

// AuthHandler handles registration and login.
type AuthHandler struct {
	*Handler
	svc *identity.Service
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(base *Handler, svc *identity.Service) *AuthHandler {
	return &AuthHandler{Handler: base, svc: svc}
}

// RegisterRoutes registers the public auth routes.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
	})
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Grade    string `json:"grade"`
	Phone    string `json:"phone,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a new account and returns a bearer token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.Register(r.Context(), req.Email, req.Password, req.Grade, req.Phone)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidInput):
			Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, identity.ErrEmailTaken):
			Error(w, http.StatusConflict, "email already registered")
		default:
			slog.Error("Registration failed", "error", err)
			storeError(w, err)
		}
		return
	}

	slog.Info("User registered", "user_id", result.Profile.ID)
	JSON(w, http.StatusCreated, result)
}

// Login verifies credentials and returns a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidInput):
			Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, identity.ErrInvalidCredentials):
			Error(w, http.StatusUnauthorized, "invalid credentials")
		default:
			slog.Error("Login failed", "error", err)
			storeError(w, err)
		}
		return
	}

	JSON(w, http.StatusOK, result)
}
