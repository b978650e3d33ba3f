package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"english-quiz-service/internal/domain"
)

// LearnerStore reads and writes the students aggregate row.
type LearnerStore struct {
	pool *pgxpool.Pool
}

func NewLearnerStore(pool *pgxpool.Pool) *LearnerStore {
	return &LearnerStore{pool: pool}
}

func (s *LearnerStore) FetchLearnerAggregate(ctx context.Context, studentID string) (domain.LearnerAggregate, error) {
	agg := domain.LearnerAggregate{StudentID: studentID}
	err := s.pool.QueryRow(ctx, `SELECT total_points, level FROM students WHERE id=$1`, studentID).
		Scan(&agg.TotalPoints, &agg.Level)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LearnerAggregate{StudentID: studentID, Level: 1}, nil
	}
	if err != nil {
		return domain.LearnerAggregate{}, fmt.Errorf("fetch learner: %w", err)
	}
	return agg, nil
}

func (s *LearnerStore) UpdateLearnerAggregate(ctx context.Context, studentID string, totalPoints, level int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO students (id, total_points, level) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET total_points=EXCLUDED.total_points, level=EXCLUDED.level`,
		studentID, totalPoints, level)
	if err != nil {
		return fmt.Errorf("update learner: %w", err)
	}
	return nil
}

// AddPoints increments the total and recomputes the level in a single statement.
func (s *LearnerStore) AddPoints(ctx context.Context, studentID string, delta int) (domain.LearnerAggregate, error) {
	agg := domain.LearnerAggregate{StudentID: studentID}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO students (id, total_points, level) VALUES ($1, $2, GREATEST($2, 0) / 100 + 1)
		ON CONFLICT (id) DO UPDATE SET
			total_points = students.total_points + EXCLUDED.total_points,
			level = GREATEST(students.total_points + EXCLUDED.total_points, 0) / 100 + 1
		RETURNING total_points, level`, studentID, delta).
		Scan(&agg.TotalPoints, &agg.Level)
	if err != nil {
		return domain.LearnerAggregate{}, fmt.Errorf("add points: %w", err)
	}
	return agg, nil
}
