package solver

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/studypal/server/internal/domain"
)

// session holds one user's in-memory solver state. Questions, answers
// and loading flags all belong to a single upload generation; a new
// image bumps the generation, which tells late completions their
// results are stale.
type session struct {
	mu         sync.Mutex
	questions  []domain.Question
	answers    []domain.Answer
	pending    map[string]bool
	generation uint64
	lastActive time.Time
}

func newSession() *session {
	return &session{
		pending:    make(map[string]bool),
		lastActive: time.Now(),
	}
}

func (s *session) touch() {
	s.lastActive = time.Now()
}

// questionLocked returns the question with the given ID, or nil.
// Caller must hold s.mu.
func (s *session) questionLocked(questionID string) *domain.Question {
	for i := range s.questions {
		if s.questions[i].ID == questionID {
			return &s.questions[i]
		}
	}
	return nil
}

// answerIndexLocked returns the index of the answer for a question, or -1.
// Caller must hold s.mu.
func (s *session) answerIndexLocked(questionID string) int {
	for i := range s.answers {
		if s.answers[i].QuestionID == questionID {
			return i
		}
	}
	return -1
}

// sessions is a mutex-guarded registry of active solver sessions keyed
// by user ID.
type sessions struct {
	mu     sync.RWMutex
	active map[string]*session
}

func newSessions() *sessions {
	return &sessions{active: make(map[string]*session)}
}

func (r *sessions) get(userID string) *session {
	r.mu.RLock()
	s, ok := r.active[userID]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.active[userID]; ok {
		return s
	}
	s = newSession()
	r.active[userID] = s
	return s
}

// peek returns the session without creating one.
func (r *sessions) peek(userID string) *session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active[userID]
}

func (r *sessions) remove(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, userID)
}

// sweep removes sessions idle longer than ttl and returns how many were
// dropped. A removed session's generation is bumped so any in-flight
// generation discards its result.
func (r *sessions) sweep(ttl time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	cutoff := time.Now().Add(-ttl)
	for userID, s := range r.active {
		s.mu.Lock()
		idle := s.lastActive.Before(cutoff)
		if idle {
			s.generation++
		}
		s.mu.Unlock()
		if idle {
			delete(r.active, userID)
			removed++
		}
	}
	return removed
}

// StartTTLWorker periodically drops idle solver sessions until ctx is done.
func (s *Service) StartTTLWorker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Solver session TTL worker started", "interval", interval, "ttl", s.sessionTTL)

		for {
			select {
			case <-ticker.C:
				if n := s.sessions.sweep(s.sessionTTL); n > 0 {
					slog.Info("Solver sessions expired", "count", n)
				}
			case <-ctx.Done():
				slog.Info("Solver session TTL worker shutting down")
				return
			}
		}
	}()
}
