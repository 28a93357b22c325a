package domain

import (
	"time"
)

// Profile represents a registered student account.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	PassHash  []byte    `json:"-"`
	Phone     string    `json:"phone,omitempty"`
	Grade     string    `json:"grade,omitempty"`
	IsPremium bool      `json:"is_premium"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidGrade reports whether g is one of the supported class levels.
func ValidGrade(g string) bool {
	switch g {
	case "10", "11", "12":
		return true
	}
	return false
}
