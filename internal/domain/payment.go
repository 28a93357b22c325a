package domain

import (
	"time"
)

// Payment transaction statuses. Transactions are created pending and
// verified out of band by an operator.
const (
	PaymentStatusPending  = "pending"
	PaymentStatusVerified = "verified"
	PaymentStatusRejected = "rejected"
)

// PaymentSettings holds the manual-payment details shown to users:
// a QR code to scan and the one-time upgrade price.
type PaymentSettings struct {
	QRCodeURL string  `json:"qr_code_url"`
	Price     float64 `json:"price"`
}

// PaymentTransaction records a user-submitted payment reference.
type PaymentTransaction struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	TransactionNumber string    `json:"transaction_number"`
	Amount            float64   `json:"amount"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
}
