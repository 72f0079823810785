package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Persister receives every recorded utterance. journal.Journal implements it.
type Persister interface {
	Persist(line string) error
}

// Session accumulates transformed utterances until cleared. It is safe for
// concurrent use; Snapshot never observes a partial Record.
type Session struct {
	id        string
	persister Persister

	mu    sync.Mutex
	lines []string
}

// New returns an empty session. persister may be nil.
func New(persister Persister) *Session {
	return &Session{id: uuid.NewString(), persister: persister}
}

func (s *Session) ID() string {
	return s.id
}

// Record appends utterance and forwards it to the persister. The in-memory
// append succeeds even when persisting fails; that error is returned.
func (s *Session) Record(utterance string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = append(s.lines, utterance)
	if s.persister == nil {
		return nil
	}
	if err := s.persister.Persist(utterance); err != nil {
		return fmt.Errorf("persist utterance: %w", err)
	}
	return nil
}

// Clear empties the in-memory log. Persisted lines are untouched.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = nil
}

func (s *Session) Snapshot() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return strings.Join(s.lines, "\n")
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.lines)
}
