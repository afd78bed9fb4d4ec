package planner

import (
	"sort"
	"sync"

	"studyflow-backend/internal/models"
)

// Store holds one planner's sessions in insertion order.
// Validation is the caller's job; Store accepts whatever it is given.
type Store struct {
	mu       sync.RWMutex
	sessions []models.StudySession
}

func NewStore() *Store {
	return &Store{}
}

// Add appends a fully formed session. It always succeeds.
func (s *Store) Add(session models.StudySession) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = append(s.sessions, session)
}

// Remove deletes the session with the given id. An unknown id leaves the
// store untouched and reports false.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sess := range s.sessions {
		if sess.ID == id {
			s.sessions = append(s.sessions[:i:i], s.sessions[i+1:]...)
			return true
		}
	}
	return false
}

// List returns the sessions ordered by ascending start time. Ties keep
// insertion order. The backing slice is not reordered.
func (s *Store) List() []models.StudySession {
	out := s.Snapshot()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

// Snapshot returns a copy in insertion order.
func (s *Store) Snapshot() []models.StudySession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.StudySession, len(s.sessions))
	copy(out, s.sessions)
	return out
}

func (s *Store) Get(id string) (models.StudySession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sess := range s.sessions {
		if sess.ID == id {
			return sess, true
		}
	}
	return models.StudySession{}, false
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
