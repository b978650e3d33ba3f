package memory

import (
	"context"
	"testing"

	"english-quiz-service/internal/domain"
)

func TestResultStoreInsertAssignsID(t *testing.T) {
	store := NewResultStore()
	saved, err := store.InsertResult(context.Background(), domain.ResultRecord{StudentID: "u1", QuizID: "quiz-1", Score: 50})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if saved.ID == "" {
		t.Fatalf("expected generated id")
	}
	if _, err := store.InsertResult(context.Background(), domain.ResultRecord{StudentID: "u2", QuizID: "quiz-1"}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	results := store.ResultsFor("u1")
	if len(results) != 1 || results[0].Score != 50 {
		t.Fatalf("expected one result for u1, got %+v", results)
	}
}
