package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"english-quiz-service/internal/domain"
)

// ResultStore keeps inserted results in memory.
type ResultStore struct {
	mu      sync.RWMutex
	results []domain.ResultRecord
}

func NewResultStore() *ResultStore {
	return &ResultStore{}
}

func (s *ResultStore) InsertResult(_ context.Context, record domain.ResultRecord) (domain.ResultRecord, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, record)
	return record, nil
}

// ResultsFor lists a learner's results in insertion order.
func (s *ResultStore) ResultsFor(studentID string) []domain.ResultRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ResultRecord
	for _, r := range s.results {
		if r.StudentID == studentID {
			out = append(out, r)
		}
	}
	return out
}
