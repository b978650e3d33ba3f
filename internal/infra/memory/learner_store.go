package memory

import (
	"context"
	"sync"

	"english-quiz-service/internal/domain"
)

// LearnerStore keeps learner aggregates in memory.
type LearnerStore struct {
	mu       sync.Mutex
	learners map[string]domain.LearnerAggregate
}

func NewLearnerStore() *LearnerStore {
	return &LearnerStore{learners: make(map[string]domain.LearnerAggregate)}
}

func (s *LearnerStore) FetchLearnerAggregate(_ context.Context, studentID string) (domain.LearnerAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(studentID), nil
}

func (s *LearnerStore) UpdateLearnerAggregate(_ context.Context, studentID string, totalPoints, level int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.learners[studentID] = domain.LearnerAggregate{StudentID: studentID, TotalPoints: totalPoints, Level: level}
	return nil
}

// AddPoints increments a learner's points and recomputes the level in one step.
func (s *LearnerStore) AddPoints(_ context.Context, studentID string, delta int) (domain.LearnerAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	agg := s.getLocked(studentID)
	agg.TotalPoints += delta
	agg.Level = domain.LevelFor(agg.TotalPoints)
	s.learners[studentID] = agg
	return agg, nil
}

func (s *LearnerStore) getLocked(studentID string) domain.LearnerAggregate {
	if agg, ok := s.learners[studentID]; ok {
		return agg
	}
	return domain.LearnerAggregate{StudentID: studentID, TotalPoints: 0, Level: 1}
}
