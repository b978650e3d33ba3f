package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"english-quiz-service/internal/domain"
)

// ResultStore persists quiz results. Rows are insert-only.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) InsertResult(ctx context.Context, record domain.ResultRecord) (domain.ResultRecord, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO quiz_results (id, student_id, quiz_id, score, total_questions, time_taken, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		record.ID, record.StudentID, record.QuizID, record.Score, record.TotalQuestions, record.TimeTaken, record.CompletedAt)
	if err != nil {
		return domain.ResultRecord{}, fmt.Errorf("insert result: %w", err)
	}
	return record, nil
}

// ResultsFor lists a learner's results, newest first.
func (s *ResultStore) ResultsFor(ctx context.Context, studentID string) ([]domain.ResultRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, student_id, quiz_id, score, total_questions, time_taken, completed_at
		FROM quiz_results WHERE student_id=$1
		ORDER BY completed_at DESC`, studentID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var out []domain.ResultRecord
	for rows.Next() {
		var r domain.ResultRecord
		if err := rows.Scan(&r.ID, &r.StudentID, &r.QuizID, &r.Score, &r.TotalQuestions, &r.TimeTaken, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
