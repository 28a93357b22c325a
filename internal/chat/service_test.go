package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/studypal/server/internal/domain"
)

type memStore struct {
	messages []*domain.ChatMessage
}

func (m *memStore) AddChatMessage(ctx context.Context, msg *domain.ChatMessage) error {
	m.messages = append(m.messages, msg)
	return nil
}

func (m *memStore) RecentChatMessages(ctx context.Context, userID string, limit int) ([]*domain.ChatMessage, error) {
	out := m.messages
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type scriptedGen struct {
	reply  string
	err    error
	prompt string
}

func (g *scriptedGen) Complete(ctx context.Context, prompt string) (string, error) {
	g.prompt = prompt
	return g.reply, g.err
}

func TestSend(t *testing.T) {
	store := &memStore{}
	gen := &scriptedGen{reply: "Photosynthesis converts light into chemical energy."}
	svc := NewService(store, gen)

	msg, err := svc.Send(context.Background(), "u1", "What is photosynthesis?", "")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if msg.Role != domain.ChatRoleAssistant {
		t.Errorf("Expected assistant role, got %q", msg.Role)
	}
	if msg.Content != gen.reply {
		t.Errorf("Unexpected reply %q", msg.Content)
	}
	if gen.prompt != "What is photosynthesis?" {
		t.Errorf("Prompt altered without reply-to: %q", gen.prompt)
	}

	if len(store.messages) != 2 {
		t.Fatalf("Expected 2 persisted messages, got %d", len(store.messages))
	}
	if store.messages[0].Role != domain.ChatRoleUser {
		t.Errorf("First persisted message should be the user's, got %q", store.messages[0].Role)
	}
}

func TestSendWithReplyTo(t *testing.T) {
	gen := &scriptedGen{reply: "ok"}
	svc := NewService(&memStore{}, gen)

	if _, err := svc.Send(context.Background(), "u1", "Explain step 2", "The answer is 4."); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	want := "The answer is 4.\n\nExplain step 2"
	if gen.prompt != want {
		t.Errorf("Prompt = %q, want %q", gen.prompt, want)
	}
}

func TestSendEmpty(t *testing.T) {
	store := &memStore{}
	svc := NewService(store, &scriptedGen{reply: "ok"})

	if _, err := svc.Send(context.Background(), "u1", "", ""); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("Expected ErrEmptyMessage, got %v", err)
	}
	if len(store.messages) != 0 {
		t.Errorf("Nothing should be persisted for empty input, got %d messages", len(store.messages))
	}
}

func TestSendGeneratorFailure(t *testing.T) {
	store := &memStore{}
	svc := NewService(store, &scriptedGen{err: errors.New("model down")})

	if _, err := svc.Send(context.Background(), "u1", "hello", ""); err == nil {
		t.Fatal("Expected error from failed generation")
	}
	// The user's message stays persisted even when the reply fails.
	if len(store.messages) != 1 {
		t.Errorf("Expected 1 persisted message, got %d", len(store.messages))
	}
}

func TestHistoryLimitClamp(t *testing.T) {
	store := &memStore{}
	for i := 0; i < 250; i++ {
		store.messages = append(store.messages, &domain.ChatMessage{ID: "m", UserID: "u1"})
	}
	svc := NewService(store, &scriptedGen{})

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"zero gets default", 0, 50},
		{"negative gets default", -5, 50},
		{"small passes through", 10, 10},
		{"ceiling", 200, 200},
		{"over ceiling clamps down", 201, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs, err := svc.History(context.Background(), "u1", tt.limit)
			if err != nil {
				t.Fatalf("History failed: %v", err)
			}
			if len(msgs) != tt.want {
				t.Errorf("History(limit=%d) returned %d messages, want %d", tt.limit, len(msgs), tt.want)
			}
		})
	}
}
