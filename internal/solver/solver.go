// Package solver implements the AI question-solver pipeline: image
// upload, OCR, question extraction, per-question answer generation and
// export of the answer collection.
package solver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/studypal/server/internal/config"
	"github.com/studypal/server/internal/domain"
)

// Errors surfaced to the API layer. ErrAlreadyAnswered is the free-tier
// gate; handlers translate it into an upgrade prompt rather than a
// generic failure.
var (
	ErrNoImage          = errors.New("image required")
	ErrSubmitInProgress = errors.New("image processing already in progress")
	ErrUnknownQuestion  = errors.New("unknown question")
	ErrAnswerPending    = errors.New("answer generation already in progress")
	ErrAlreadyAnswered  = errors.New("free answer already used for this question")
	ErrNoAnswers        = errors.New("no answers to export")
	ErrStaleGeneration  = errors.New("question set was replaced")
)

// OCRClient extracts plain text from an image.
type OCRClient interface {
	Recognize(ctx context.Context, image []byte, filename string) (string, error)
}

// TextGenerator produces a completion for a prompt.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ImageArchiver forwards uploaded images to external archival storage.
type ImageArchiver interface {
	Upload(ctx context.Context, image []byte, filename, caption string) error
}

// Exporter renders the answer collection to a downloadable document.
type Exporter interface {
	Render(answers []domain.Answer) ([]byte, error)
}

// ProfileQuota is the slice of the repository the solver needs: premium
// lookup and the persisted free-tier answered set.
type ProfileQuota interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	WasAnswered(ctx context.Context, userID, questionID string) (bool, error)
	MarkAnswered(ctx context.Context, userID, questionID string) error
	ClearAnswered(ctx context.Context, userID string) error
}

// Service is the solver state machine. All state lives in per-user
// in-memory sessions; the free-tier answered set is persisted through
// the repository so the quota survives restarts.
type Service struct {
	ocr      OCRClient
	gen      TextGenerator
	archive  ImageArchiver
	exporter Exporter
	repo     ProfileQuota

	regenPolicy string
	sessionTTL  time.Duration

	sessions *sessions

	// submitLocks serializes SubmitImage per user.
	submitLocks sync.Map
}

// NewService creates a solver service.
func NewService(ocr OCRClient, gen TextGenerator, archive ImageArchiver, exporter Exporter, repo ProfileQuota, regenPolicy string, sessionTTL time.Duration) *Service {
	return &Service{
		ocr:         ocr,
		gen:         gen,
		archive:     archive,
		exporter:    exporter,
		repo:        repo,
		regenPolicy: regenPolicy,
		sessionTTL:  sessionTTL,
		sessions:    newSessions(),
	}
}

// CanAnswer is the gating predicate for answer generation: a question
// may be answered if it has no answer yet and the user is premium or has
// not consumed their free generation for it. Pure; re-checked under the
// session lock at request time.
func CanAnswer(hasAnswer, isPremium, answeredBefore bool) bool {
	return !hasAnswer && (isPremium || !answeredBefore)
}

// SubmitImage runs the upload pipeline: OCR, question extraction, then
// an atomic replacement of the user's question collection. On any
// transport or parse failure the session is left untouched.
func (s *Service) SubmitImage(ctx context.Context, userID, email string, image []byte, filename string) ([]domain.Question, error) {
	if len(image) == 0 {
		return nil, ErrNoImage
	}

	lock, _ := s.submitLocks.LoadOrStore(userID, &sync.Mutex{})
	mutex := lock.(*sync.Mutex)
	if !mutex.TryLock() {
		return nil, ErrSubmitInProgress
	}
	defer func() {
		mutex.Unlock()
		s.submitLocks.Delete(userID)
	}()

	text, err := s.ocr.Recognize(ctx, image, filename)
	if err != nil {
		return nil, err
	}

	raw, err := s.gen.Complete(ctx, extractionPrompt(text))
	if err != nil {
		return nil, err
	}

	questions, err := ParseQuestions(raw)
	if err != nil {
		return nil, err
	}

	// The answered set is scoped to one upload; reset it with the
	// questions it gated.
	if err := s.repo.ClearAnswered(ctx, userID); err != nil {
		return nil, fmt.Errorf("reset answered set: %w", err)
	}

	sess := s.sessions.get(userID)
	sess.mu.Lock()
	sess.generation++
	sess.questions = questions
	sess.answers = nil
	sess.pending = make(map[string]bool)
	sess.touch()
	sess.mu.Unlock()

	// Archival is best effort and must not delay or fail the pipeline.
	go func(img []byte, name, caption string) {
		uploadCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.archive.Upload(uploadCtx, img, name, caption); err != nil {
			slog.Warn("Image archival failed", "user_id", userID, "error", err)
		}
	}(image, filename, email)

	slog.Info("Questions extracted", "user_id", userID, "count", len(questions))
	return questions, nil
}

// RequestAnswer generates an answer for one question. At most one
// generation is outstanding per question; the free tier gets a single
// successful generation per question, enforced against the persisted
// answered set.
func (s *Service) RequestAnswer(ctx context.Context, userID, questionID string) (*domain.Answer, error) {
	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("profile not found")
	}

	answeredBefore, err := s.repo.WasAnswered(ctx, userID, questionID)
	if err != nil {
		return nil, err
	}

	sess := s.sessions.get(userID)

	sess.mu.Lock()
	question := sess.questionLocked(questionID)
	if question == nil {
		sess.mu.Unlock()
		return nil, ErrUnknownQuestion
	}
	if sess.pending[questionID] {
		sess.mu.Unlock()
		return nil, ErrAnswerPending
	}
	hasAnswer := sess.answerIndexLocked(questionID) >= 0
	if !CanAnswer(hasAnswer, profile.IsPremium, answeredBefore) && !profile.IsPremium {
		sess.mu.Unlock()
		return nil, ErrAlreadyAnswered
	}
	questionText := question.Text
	gen := sess.generation
	sess.pending[questionID] = true
	sess.touch()
	sess.mu.Unlock()

	// The loading flag is cleared on every path out of this function.
	defer func() {
		sess.mu.Lock()
		delete(sess.pending, questionID)
		sess.mu.Unlock()
	}()

	answerText, err := s.gen.Complete(ctx, answerPrompt(questionText))
	if err != nil {
		return nil, err
	}

	answer := domain.Answer{
		QuestionID:   questionID,
		QuestionText: questionText,
		AnswerText:   answerText,
	}

	sess.mu.Lock()
	if sess.generation != gen {
		// A new image replaced the question set while we were
		// generating; the result belongs to a dead collection.
		sess.mu.Unlock()
		return nil, ErrStaleGeneration
	}
	if idx := sess.answerIndexLocked(questionID); idx >= 0 && s.regenPolicy == config.RegenReplace {
		sess.answers[idx] = answer
	} else {
		sess.answers = append(sess.answers, answer)
	}
	sess.touch()
	sess.mu.Unlock()

	if !profile.IsPremium {
		if err := s.repo.MarkAnswered(ctx, userID, questionID); err != nil {
			slog.Warn("Failed to persist answered flag", "user_id", userID, "question_id", questionID, "error", err)
		}
	}

	return &answer, nil
}

// Questions returns a copy of the user's current question collection.
func (s *Service) Questions(userID string) []domain.Question {
	sess := s.sessions.peek(userID)
	if sess == nil {
		return nil
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := make([]domain.Question, len(sess.questions))
	copy(out, sess.questions)
	return out
}

// Answers returns a copy of the user's current answers in insertion order.
func (s *Service) Answers(userID string) []domain.Answer {
	sess := s.sessions.peek(userID)
	if sess == nil {
		return nil
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := make([]domain.Answer, len(sess.answers))
	copy(out, sess.answers)
	return out
}

// AnswerPending reports whether a generation is outstanding for a question.
func (s *Service) AnswerPending(userID, questionID string) bool {
	sess := s.sessions.peek(userID)
	if sess == nil {
		return false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.pending[questionID]
}

// ExportAnswers renders the current answer collection to a document.
// Purely a read; session state is not mutated.
func (s *Service) ExportAnswers(userID string) ([]byte, error) {
	answers := s.Answers(userID)
	if len(answers) == 0 {
		return nil, ErrNoAnswers
	}
	return s.exporter.Render(answers)
}

// CloseSession drops a user's solver session. In-flight generations
// discard their results via the generation check.
func (s *Service) CloseSession(userID string) {
	sess := s.sessions.peek(userID)
	if sess != nil {
		sess.mu.Lock()
		sess.generation++
		sess.mu.Unlock()
	}
	s.sessions.remove(userID)
}
