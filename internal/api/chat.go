package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/studypal/server/internal/chat"
	"github.com/studypal/server/internal/domain"
	"github.com/studypal/server/internal/identity"
)

// ChatHandler handles chat history reads. Live conversation runs over
// the WebSocket endpoint.
type ChatHandler struct {
	*Handler
	svc *chat.Service
}

// NewChatHandler creates a chat handler.
func NewChatHandler(base *Handler, svc *chat.Service) *ChatHandler {
	return &ChatHandler{Handler: base, svc: svc}
}

// RegisterRoutes registers the chat routes.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/chat/history", h.History)
}

// History returns recent chat messages, oldest first.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	messages, err := h.svc.History(r.Context(), userID, limit)
	if err != nil {
		slog.Error("Failed to load chat history", "error", err, "user_id", userID)
		storeError(w, err)
		return
	}
	if messages == nil {
		messages = []*domain.ChatMessage{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}
