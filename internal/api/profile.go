package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/studypal/server/internal/domain"
	"github.com/studypal/server/internal/identity"
)

// ProfileHandler handles profile read and update.
type ProfileHandler struct {
	*Handler
}

// NewProfileHandler creates a profile handler.
func NewProfileHandler(base *Handler) *ProfileHandler {
	return &ProfileHandler{Handler: base}
}

// RegisterRoutes registers the profile routes.
func (h *ProfileHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/profile", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
	})
}

type updateProfileRequest struct {
	Phone string `json:"phone"`
	Grade string `json:"grade"`
}

// Get returns the authenticated user's profile.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	profile, err := h.repo.GetProfile(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to load profile", "error", err, "user_id", userID)
		storeError(w, err)
		return
	}
	if profile == nil {
		Error(w, http.StatusNotFound, "profile not found")
		return
	}

	JSON(w, http.StatusOK, profile)
}

// Update changes the mutable profile fields (phone, grade).
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Grade != "" && !domain.ValidGrade(req.Grade) {
		Error(w, http.StatusBadRequest, "grade must be 10, 11 or 12")
		return
	}

	if err := h.repo.UpdateProfile(r.Context(), userID, req.Phone, req.Grade); err != nil {
		slog.Error("Failed to update profile", "error", err, "user_id", userID)
		storeError(w, err)
		return
	}

	profile, err := h.repo.GetProfile(r.Context(), userID)
	if err != nil || profile == nil {
		slog.Error("Failed to reload profile", "error", err, "user_id", userID)
		storeError(w, err)
		return
	}

	JSON(w, http.StatusOK, profile)
}
