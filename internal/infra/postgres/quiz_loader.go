package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"english-quiz-service/internal/domain"
)

// QuizLoader loads quizzes and their questions from Postgres.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.QuizContent, error) {
	var quiz domain.Quiz
	var difficulty string
	err := l.pool.QueryRow(ctx, `
		SELECT id, title, description, difficulty, time_limit, points_per_question
		FROM quizzes WHERE id=$1`, quizID).
		Scan(&quiz.ID, &quiz.Title, &quiz.Description, &difficulty, &quiz.TimeLimit, &quiz.PointsPerQuestion)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizContent{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.QuizContent{}, fmt.Errorf("load quiz: %w", err)
	}
	quiz.Difficulty = domain.Difficulty(difficulty)

	rows, err := l.pool.Query(ctx, `
		SELECT id, quiz_id, question_text, option_a, option_b, option_c, option_d,
		       correct_answer, points, explanation, order_number
		FROM questions WHERE quiz_id=$1
		ORDER BY order_number, seq`, quizID)
	if err != nil {
		return domain.QuizContent{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var q domain.Question
		var correct string
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Text, &q.Options.A, &q.Options.B, &q.Options.C, &q.Options.D,
			&correct, &q.Points, &q.Explanation, &q.OrderNumber); err != nil {
			return domain.QuizContent{}, fmt.Errorf("scan question: %w", err)
		}
		q.CorrectAnswer = domain.OptionLabel(correct)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return domain.QuizContent{}, fmt.Errorf("load questions: %w", err)
	}
	return domain.QuizContent{Quiz: quiz, Questions: questions}, nil
}

// SaveQuiz upserts a quiz and replaces its questions, keeping their slice order.
func (l *QuizLoader) SaveQuiz(ctx context.Context, content domain.QuizContent) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	quiz := content.Quiz
	if _, err := tx.Exec(ctx, `
		INSERT INTO quizzes (id, title, description, difficulty, time_limit, points_per_question)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			title=EXCLUDED.title, description=EXCLUDED.description, difficulty=EXCLUDED.difficulty,
			time_limit=EXCLUDED.time_limit, points_per_question=EXCLUDED.points_per_question`,
		quiz.ID, quiz.Title, quiz.Description, string(quiz.Difficulty), quiz.TimeLimit, quiz.PointsPerQuestion); err != nil {
		return fmt.Errorf("upsert quiz: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE quiz_id=$1`, quiz.ID); err != nil {
		return fmt.Errorf("clear questions: %w", err)
	}

	batch := &pgx.Batch{}
	for _, q := range content.Questions {
		batch.Queue(`
			INSERT INTO questions (id, quiz_id, question_text, option_a, option_b, option_c, option_d,
			                       correct_answer, points, explanation, order_number)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			q.ID, quiz.ID, q.Text, q.Options.A, q.Options.B, q.Options.C, q.Options.D,
			string(q.CorrectAnswer), q.Points, q.Explanation, q.OrderNumber)
	}
	if batch.Len() > 0 {
		results := tx.SendBatch(ctx, batch)
		for range content.Questions {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("insert question: %w", err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("insert questions: %w", err)
		}
	}
	return tx.Commit(ctx)
}
