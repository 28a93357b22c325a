// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/studypal/server/internal/domain"
)

// Repository defines the interface for persisting profiles, quota and
// payment data.
type Repository interface {
	// GetProfile retrieves a profile by user ID. Returns nil if not found.
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)

	// GetProfileByEmail retrieves a profile by email. Returns nil if not found.
	GetProfileByEmail(ctx context.Context, email string) (*domain.Profile, error)

	// CreateProfile inserts a new profile record.
	CreateProfile(ctx context.Context, p *domain.Profile) error

	// UpdateProfile updates the mutable profile fields (phone, grade).
	UpdateProfile(ctx context.Context, userID, phone, grade string) error

	// SetPremium updates the premium entitlement flag for a user.
	SetPremium(ctx context.Context, userID string, premium bool) error

	// WasAnswered reports whether the user has already consumed their
	// free-tier generation for the given question.
	WasAnswered(ctx context.Context, userID, questionID string) (bool, error)

	// MarkAnswered records a consumed free-tier generation.
	MarkAnswered(ctx context.Context, userID, questionID string) error

	// ClearAnswered drops all free-tier quota records for a user. Called
	// when a new image replaces the question collection.
	ClearAnswered(ctx context.Context, userID string) error

	// GetPaymentSettings returns the current payment settings. Returns
	// nil if none are configured.
	GetPaymentSettings(ctx context.Context) (*domain.PaymentSettings, error)

	// EnsurePaymentSettings inserts payment settings if none exist yet.
	EnsurePaymentSettings(ctx context.Context, qrCodeURL string, price float64) error

	// InsertPaymentTransaction records a user-submitted payment.
	InsertPaymentTransaction(ctx context.Context, tx *domain.PaymentTransaction) error

	// AddChatMessage appends a message to a user's chat history.
	AddChatMessage(ctx context.Context, msg *domain.ChatMessage) error

	// RecentChatMessages returns up to limit most recent messages for a
	// user, oldest first.
	RecentChatMessages(ctx context.Context, userID string, limit int) ([]*domain.ChatMessage, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
