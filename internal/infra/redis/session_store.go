package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"english-quiz-service/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Sessions own timers and subscriber channels, so they stay in a local map.
//   - Redis marks session liveness (quiz:session:{id} -> student id) so other
//     instances and operators can see which sessions are open.
type SessionStore struct {
	client    *redis.Client
	ttl       time.Duration
	opTimeout time.Duration
	mu        sync.RWMutex
	sessions  map[string]*app.Session
}

// livenessTimeout bounds each marker write so a stalled Redis cannot hold up session calls.
const livenessTimeout = 500 * time.Millisecond

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:    client,
		ttl:       ttl,
		opTimeout: livenessTimeout,
		sessions:  make(map[string]*app.Session),
	}
}

func (s *SessionStore) Put(session *app.Session) {
	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()
	// best-effort liveness marker
	ctx, cancel := s.opContext()
	defer cancel()
	_ = s.client.Set(ctx, s.key(session.ID()), session.Learner().StudentID, s.ttl).Err()
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	ctx, cancel := s.opContext()
	defer cancel()
	_ = s.client.Del(ctx, s.key(sessionID)).Err()
}

// List returns the local sessions and refreshes their liveness markers.
func (s *SessionStore) List() []*app.Session {
	s.mu.RLock()
	out := make([]*app.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	s.mu.RUnlock()

	if s.ttl > 0 && len(out) > 0 {
		ctx, cancel := s.opContext()
		defer cancel()
		pipe := s.client.Pipeline()
		for _, session := range out {
			pipe.Expire(ctx, s.key(session.ID()), s.ttl)
		}
		_, _ = pipe.Exec(ctx)
	}
	return out
}

func (s *SessionStore) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.opTimeout)
}

func (s *SessionStore) key(sessionID string) string {
	return "quiz:session:" + sessionID
}
