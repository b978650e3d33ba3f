package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"english-quiz-service/internal/domain"
)

// SessionService contains the quiz session use cases.
type SessionService struct {
	sessions SessionRepository
	data     DataAccess
	opts     options
}

func NewSessionService(store SessionRepository, data DataAccess, opts ...Option) *SessionService {
	return &SessionService{sessions: store, data: data, opts: buildOptions(opts)}
}

// Open creates a session for learner and loads the quiz. The session is registered even
// when loading fails so the learner can see why it is unavailable; the load error is returned.
func (s *SessionService) Open(ctx context.Context, learner SessionContext, quizID string) (*Session, error) {
	if learner.StudentID == "" {
		return nil, domain.ErrUnauthorized
	}
	session := newSession(uuid.NewString(), learner, quizID, s.data, s.opts)
	s.sessions.Put(session)
	s.opts.metrics.SessionOpened()

	if err := session.Load(ctx); err != nil {
		return session, err
	}
	return session, nil
}

// Get returns a session owned by learner. Admins may read any session.
func (s *SessionService) Get(_ context.Context, learner SessionContext, sessionID string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if session.learner.StudentID != learner.StudentID && learner.Role != domain.RoleAdmin {
		return nil, domain.ErrForbidden
	}
	return session, nil
}

// Leave closes the session and forgets it. Unsubmitted answers are discarded.
func (s *SessionService) Leave(ctx context.Context, learner SessionContext, sessionID string) error {
	session, err := s.Get(ctx, learner, sessionID)
	if err != nil {
		return err
	}
	session.Close()
	s.sessions.Delete(sessionID)
	return nil
}

// ReapIdle closes and drops sessions nobody has touched for the idle TTL. It returns how
// many sessions were removed.
func (s *SessionService) ReapIdle(now time.Time) int {
	removed := 0
	for _, session := range s.sessions.List() {
		if !session.reapable(now, s.opts.idleTTL) {
			continue
		}
		session.Close()
		s.sessions.Delete(session.ID())
		removed++
	}
	if removed > 0 {
		s.opts.logger.Info("reaped idle sessions", zap.Int("count", removed))
	}
	return removed
}
