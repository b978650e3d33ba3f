package app

import (
	"context"

	"english-quiz-service/internal/domain"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	FetchQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	// FetchQuestions returns questions ordered by order number, ties in insertion order.
	FetchQuestions(ctx context.Context, quizID string) ([]domain.Question, error)
}

// ResultRepository stores completed sessions. Results are insert-only.
type ResultRepository interface {
	InsertResult(ctx context.Context, record domain.ResultRecord) (domain.ResultRecord, error)
}

// LearnerRepository reads and writes a learner's cumulative points.
// Unknown learners read as zero points at level 1; updates upsert.
type LearnerRepository interface {
	FetchLearnerAggregate(ctx context.Context, studentID string) (domain.LearnerAggregate, error)
	UpdateLearnerAggregate(ctx context.Context, studentID string, totalPoints, level int) error
}

// PointsIncrementer is implemented by learner stores that can add points atomically on the server.
type PointsIncrementer interface {
	AddPoints(ctx context.Context, studentID string, delta int) (domain.LearnerAggregate, error)
}

// DataAccess is the remote data capability a session depends on.
type DataAccess struct {
	Quizzes  QuizRepository
	Results  ResultRepository
	Learners LearnerRepository
}

// SessionRepository abstracts how live sessions are registered (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
	List() []*Session
}
