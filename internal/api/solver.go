package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/studypal/server/internal/domain"
	"github.com/studypal/server/internal/export"
	"github.com/studypal/server/internal/identity"
	"github.com/studypal/server/internal/solver"
)

// maxImageSize bounds uploaded solver images (10 MiB).
const maxImageSize = 10 << 20

// SolverHandler handles the AI solver pipeline endpoints.
type SolverHandler struct {
	*Handler
	svc *solver.Service
}

// NewSolverHandler creates a solver handler.
func NewSolverHandler(base *Handler, svc *solver.Service) *SolverHandler {
	return &SolverHandler{Handler: base, svc: svc}
}

// RegisterRoutes registers the solver routes.
func (h *SolverHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/solver", func(r chi.Router) {
		r.Post("/image", h.SubmitImage)
		r.Get("/questions", h.Questions)
		r.Post("/questions/{questionID}/answer", h.RequestAnswer)
		r.Get("/answers", h.Answers)
		r.Get("/export", h.Export)
	})
}

// SubmitImage accepts a multipart image upload and runs the extraction
// pipeline.
func (h *SolverHandler) SubmitImage(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	email := identity.EmailFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize)
	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		Error(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		Error(w, http.StatusBadRequest, "failed to read image")
		return
	}

	questions, err := h.svc.SubmitImage(r.Context(), userID, email, data, header.Filename)
	if err != nil {
		switch {
		case errors.Is(err, solver.ErrNoImage):
			Error(w, http.StatusBadRequest, "image required")
		case errors.Is(err, solver.ErrSubmitInProgress):
			Error(w, http.StatusConflict, "image already being processed")
		case errors.Is(err, solver.ErrMalformedResponse):
			slog.Warn("Question extraction returned malformed output", "user_id", userID, "error", err)
			Error(w, http.StatusBadGateway, "could not extract questions, try again")
		case upstreamError(w, err):
		default:
			slog.Error("Image submission failed", "error", err, "user_id", userID)
			storeError(w, err)
		}
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{"questions": questions})
}

// Questions returns the current question collection.
func (h *SolverHandler) Questions(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	questions := h.svc.Questions(userID)
	if questions == nil {
		questions = []domain.Question{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"questions": questions})
}

// RequestAnswer generates an answer for one question.
func (h *SolverHandler) RequestAnswer(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	questionID := chi.URLParam(r, "questionID")

	answer, err := h.svc.RequestAnswer(r.Context(), userID, questionID)
	if err != nil {
		switch {
		case errors.Is(err, solver.ErrUnknownQuestion):
			Error(w, http.StatusNotFound, "question not found")
		case errors.Is(err, solver.ErrAnswerPending):
			Error(w, http.StatusConflict, "answer generation already in progress")
		case errors.Is(err, solver.ErrAlreadyAnswered):
			// Not a failure: the free generation is spent, nudge an upgrade.
			JSON(w, http.StatusForbidden, map[string]string{
				"error":   "free answer already used for this question",
				"upgrade": "upgrade to premium to regenerate answers",
			})
		case errors.Is(err, solver.ErrStaleGeneration):
			Error(w, http.StatusGone, "question set was replaced, reload questions")
		case upstreamError(w, err):
		default:
			slog.Error("Answer generation failed", "error", err, "user_id", userID, "question_id", questionID)
			storeError(w, err)
		}
		return
	}

	JSON(w, http.StatusOK, answer)
}

// Answers returns the current answer collection in insertion order.
func (h *SolverHandler) Answers(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	answers := h.svc.Answers(userID)
	if answers == nil {
		answers = []domain.Answer{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"answers": answers})
}

// Export streams the answer collection as a PDF download.
func (h *SolverHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	data, err := h.svc.ExportAnswers(userID)
	if err != nil {
		if errors.Is(err, solver.ErrNoAnswers) {
			Error(w, http.StatusBadRequest, "no answers to export")
			return
		}
		slog.Error("Export failed", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Debug("Export write error", "error", err)
	}
}
