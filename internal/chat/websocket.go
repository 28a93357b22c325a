package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coder/websocket"

	"github.com/studypal/server/internal/identity"
)

// wsRequest is one inbound chat message from the client.
type wsRequest struct {
	Content string `json:"content"`
	ReplyTo string `json:"reply_to,omitempty"`
}

// wsResponse is one outbound frame: either an assistant message or an
// error for the preceding request.
type wsResponse struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// WebSocketHandler serves the chat conversation over a WebSocket.
type WebSocketHandler struct {
	svc           *Service
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a chat WebSocket handler.
func NewWebSocketHandler(svc *Service, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		svc:           svc,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	slog.Info("Chat connection request", "user_id", userID, "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "chat ended"); closeErr != nil {
			slog.Debug("WebSocket close error", "error", closeErr)
		}
	}()

	ctx := r.Context()
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return
			}
			slog.Debug("Chat read ended", "user_id", userID, "error", err)
			return
		}

		var req wsRequest
		if err := json.Unmarshal(data, &req); err != nil {
			h.write(ctx, ws, wsResponse{Error: "invalid message"})
			continue
		}

		reply, err := h.svc.Send(ctx, userID, strings.TrimSpace(req.Content), strings.TrimSpace(req.ReplyTo))
		if err != nil {
			if errors.Is(err, ErrEmptyMessage) {
				h.write(ctx, ws, wsResponse{Error: "message content required"})
				continue
			}
			slog.Error("Chat turn failed", "user_id", userID, "error", err)
			h.write(ctx, ws, wsResponse{Error: "assistant unavailable, try again"})
			continue
		}

		h.write(ctx, ws, wsResponse{Role: reply.Role, Content: reply.Content})
	}
}

func (h *WebSocketHandler) write(ctx context.Context, ws *websocket.Conn, resp wsResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		slog.Error("Failed to marshal chat response", "error", err)
		return
	}
	if err := ws.Write(ctx, websocket.MessageText, data); err != nil {
		slog.Debug("WebSocket write error", "error", err)
	}
}

// checkOrigin validates the request Origin against the configured
// frontend. Development mode accepts any origin.
func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || origin == h.allowedOrigin
}
