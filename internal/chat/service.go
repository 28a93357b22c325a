// Package chat implements the conversational assistant: message
// persistence and model round-trips, served over WebSocket.
package chat

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/studypal/server/internal/domain"
)

// ErrEmptyMessage is returned for blank input; nothing is persisted or
// dispatched.
var ErrEmptyMessage = errors.New("message content required")

// Generator produces a completion for a prompt.
type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Store is the slice of the repository the chat service needs.
type Store interface {
	AddChatMessage(ctx context.Context, msg *domain.ChatMessage) error
	RecentChatMessages(ctx context.Context, userID string, limit int) ([]*domain.ChatMessage, error)
}

// Service handles chat turns for authenticated users.
type Service struct {
	repo Store
	gen  Generator
	now  func() time.Time
}

// NewService creates a chat service.
func NewService(repo Store, gen Generator) *Service {
	return &Service{
		repo: repo,
		gen:  gen,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Send persists the user's message, obtains the assistant reply and
// persists it. A reply-to excerpt, when present, is prefixed to the
// prompt so the model sees the quoted context first.
func (s *Service) Send(ctx context.Context, userID, content, replyTo string) (*domain.ChatMessage, error) {
	if content == "" {
		return nil, ErrEmptyMessage
	}

	userMsg := &domain.ChatMessage{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      domain.ChatRoleUser,
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := s.repo.AddChatMessage(ctx, userMsg); err != nil {
		return nil, err
	}

	prompt := content
	if replyTo != "" {
		prompt = replyTo + "\n\n" + content
	}

	reply, err := s.gen.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	assistantMsg := &domain.ChatMessage{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      domain.ChatRoleAssistant,
		Content:   reply,
		CreatedAt: s.now(),
	}
	if err := s.repo.AddChatMessage(ctx, assistantMsg); err != nil {
		return nil, err
	}
	return assistantMsg, nil
}

// History returns up to limit recent messages for a user, oldest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]*domain.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	} else if limit > 200 {
		limit = 200
	}
	return s.repo.RecentChatMessages(ctx, userID, limit)
}
