package memory

import (
	"sync"
	"time"

	"arithmetic-practice-service/internal/app"
	"arithmetic-practice-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
// Ids come from a counter seeded with the start time in milliseconds.
type SessionStore struct {
	mu       sync.RWMutex
	lastID   int64
	sessions map[int64]*app.Session
}

func NewSessionStore() *SessionStore {
	return NewSessionStoreStartingAt(time.Now().UnixMilli())
}

// NewSessionStoreStartingAt makes ids predictable in tests.
func NewSessionStoreStartingAt(firstID int64) *SessionStore {
	return &SessionStore{
		lastID:   firstID - 1,
		sessions: make(map[int64]*app.Session),
	}
}

func (s *SessionStore) Create(grade int, problems []domain.Problem, startedAt time.Time) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID++
	session := app.NewSession(s.lastID, grade, problems, startedAt)
	s.sessions[s.lastID] = session
	return session
}

func (s *SessionStore) Get(id int64) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

// Len reports how many sessions are held.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
