package redis

import (
	"context"
	"strconv"
	"sync"
	"time"

	"arithmetic-practice-service/internal/app"
	"arithmetic-practice-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Sessions stay in a local map; answer grading never leaves the process.
//   - Redis marks session liveness with a TTL that is refreshed on access, so
//     operators can see active sessions across instances.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration

	mu       sync.RWMutex
	lastID   int64
	sessions map[int64]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		lastID:   time.Now().UnixMilli() - 1,
		sessions: make(map[int64]*app.Session),
	}
}

func (s *SessionStore) Create(grade int, problems []domain.Problem, startedAt time.Time) *app.Session {
	s.mu.Lock()
	s.lastID++
	session := app.NewSession(s.lastID, grade, problems, startedAt)
	s.sessions[s.lastID] = session
	s.mu.Unlock()

	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(session.ID()), grade, s.ttl).Err()
	return session
}

func (s *SessionStore) Get(id int64) (*app.Session, bool) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		_ = s.client.Expire(context.Background(), s.key(id), s.ttl).Err()
	}
	return session, ok
}

// Alive reports whether the liveness marker for id has not expired yet.
func (s *SessionStore) Alive(ctx context.Context, id int64) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(id)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *SessionStore) key(id int64) string {
	return "practice:session:" + strconv.FormatInt(id, 10)
}
