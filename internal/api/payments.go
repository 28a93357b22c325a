package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/studypal/server/internal/domain"
	"github.com/studypal/server/internal/identity"
)

// PaymentsHandler handles the manual upgrade flow: payment settings
// lookup and transaction submission. Settings are public; transaction
// submission requires auth, so the routes are registered individually
// in main rather than through a RegisterRoutes group.
type PaymentsHandler struct {
	*Handler
}

// NewPaymentsHandler creates a payments handler.
func NewPaymentsHandler(base *Handler) *PaymentsHandler {
	return &PaymentsHandler{Handler: base}
}

type transactionRequest struct {
	TransactionNumber string `json:"transaction_number"`
}

// Settings returns the QR code URL and upgrade price.
func (h *PaymentsHandler) Settings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.repo.GetPaymentSettings(r.Context())
	if err != nil {
		slog.Error("Failed to load payment settings", "error", err)
		storeError(w, err)
		return
	}
	if settings == nil {
		Error(w, http.StatusNotFound, "payments not configured")
		return
	}
	JSON(w, http.StatusOK, settings)
}

// SubmitTransaction records a payment reference and flips the profile to
// premium pending out-of-band verification.
func (h *PaymentsHandler) SubmitTransaction(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	number := strings.TrimSpace(req.TransactionNumber)
	if number == "" {
		Error(w, http.StatusBadRequest, "transaction number required")
		return
	}

	settings, err := h.repo.GetPaymentSettings(r.Context())
	if err != nil {
		slog.Error("Failed to load payment settings", "error", err)
		storeError(w, err)
		return
	}
	if settings == nil {
		Error(w, http.StatusNotFound, "payments not configured")
		return
	}

	tx := &domain.PaymentTransaction{
		ID:                uuid.NewString(),
		UserID:            userID,
		TransactionNumber: number,
		Amount:            settings.Price,
		Status:            domain.PaymentStatusPending,
		CreatedAt:         time.Now().UTC(),
	}
	if err := h.repo.InsertPaymentTransaction(r.Context(), tx); err != nil {
		slog.Error("Failed to record payment transaction", "error", err, "user_id", userID)
		storeError(w, err)
		return
	}

	if err := h.repo.SetPremium(r.Context(), userID, true); err != nil {
		slog.Error("Failed to set premium flag", "error", err, "user_id", userID)
		storeError(w, err)
		return
	}

	slog.Info("Payment transaction submitted", "user_id", userID, "transaction_id", tx.ID)
	JSON(w, http.StatusCreated, tx)
}
