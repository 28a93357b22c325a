// Package api provides HTTP handlers for the StudyPal API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/studypal/server/internal/shared"
	"github.com/studypal/server/internal/store"
)

// Handler provides common handler utilities.
type Handler struct {
	repo store.Repository
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository) *Handler {
	return &Handler{repo: repo}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// storeError maps persistence failures to a response. SQLite contention
// gets a 503 so clients know to retry.
func storeError(w http.ResponseWriter, err error) {
	if shared.IsSQLiteConflictError(err) {
		Error(w, http.StatusServiceUnavailable, "storage busy, retry")
		return
	}
	Error(w, http.StatusInternalServerError, "internal error")
}

// upstreamError reports whether err is a transport failure from an
// external service and, if so, writes the generic upstream response.
func upstreamError(w http.ResponseWriter, err error) bool {
	if errors.Is(err, shared.ErrUpstream) {
		Error(w, http.StatusBadGateway, "external service unavailable, try again")
		return true
	}
	return false
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
