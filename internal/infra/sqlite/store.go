package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // driver: sqlite

	"english-quiz-service/internal/domain"
)

// Store keeps quizzes, results and learner aggregates in a local SQLite file.
// It is the single-node alternative to the Postgres stores.
type Store struct {
	db *sqlx.DB
}

// Open opens (or creates) the database at path and ensures the schema exists.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sqlx.ConnectContext(ctx, "sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite doesn't support multiple writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS quizzes (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  difficulty TEXT NOT NULL DEFAULT 'easy',
  time_limit INTEGER NOT NULL,
  points_per_question INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS questions (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL UNIQUE,
  quiz_id TEXT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
  question_text TEXT NOT NULL,
  option_a TEXT NOT NULL,
  option_b TEXT NOT NULL,
  option_c TEXT NOT NULL,
  option_d TEXT NOT NULL,
  correct_answer TEXT NOT NULL,
  points INTEGER NOT NULL DEFAULT 0,
  explanation TEXT NOT NULL DEFAULT '',
  order_number INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS quiz_results (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL,
  quiz_id TEXT NOT NULL,
  score REAL NOT NULL,
  total_questions INTEGER NOT NULL,
  time_taken INTEGER NOT NULL,
  completed_at INTEGER NOT NULL -- unix millis
);

CREATE TABLE IF NOT EXISTS students (
  id TEXT PRIMARY KEY,
  total_points INTEGER NOT NULL DEFAULT 0,
  level INTEGER NOT NULL DEFAULT 1
);
`

type quizRow struct {
	ID                string `db:"id"`
	Title             string `db:"title"`
	Description       string `db:"description"`
	Difficulty        string `db:"difficulty"`
	TimeLimit         int    `db:"time_limit"`
	PointsPerQuestion int    `db:"points_per_question"`
}

type questionRow struct {
	ID            string `db:"id"`
	QuizID        string `db:"quiz_id"`
	Text          string `db:"question_text"`
	OptionA       string `db:"option_a"`
	OptionB       string `db:"option_b"`
	OptionC       string `db:"option_c"`
	OptionD       string `db:"option_d"`
	CorrectAnswer string `db:"correct_answer"`
	Points        int    `db:"points"`
	Explanation   string `db:"explanation"`
	OrderNumber   int    `db:"order_number"`
}

type resultRow struct {
	ID             string  `db:"id"`
	StudentID      string  `db:"student_id"`
	QuizID         string  `db:"quiz_id"`
	Score          float64 `db:"score"`
	TotalQuestions int     `db:"total_questions"`
	TimeTaken      int     `db:"time_taken"`
	CompletedAt    int64   `db:"completed_at"`
}

func (s *Store) LoadQuiz(ctx context.Context, quizID string) (domain.QuizContent, error) {
	var q quizRow
	err := s.db.GetContext(ctx, &q, `SELECT * FROM quizzes WHERE id = ?`, quizID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.QuizContent{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.QuizContent{}, fmt.Errorf("load quiz: %w", err)
	}

	var rows []questionRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT id, quiz_id, question_text, option_a, option_b, option_c, option_d,
		       correct_answer, points, explanation, order_number
		FROM questions WHERE quiz_id = ?
		ORDER BY order_number, seq`, quizID); err != nil {
		return domain.QuizContent{}, fmt.Errorf("load questions: %w", err)
	}

	content := domain.QuizContent{
		Quiz: domain.Quiz{
			ID:                q.ID,
			Title:             q.Title,
			Description:       q.Description,
			Difficulty:        domain.Difficulty(q.Difficulty),
			TimeLimit:         q.TimeLimit,
			PointsPerQuestion: q.PointsPerQuestion,
		},
		Questions: make([]domain.Question, 0, len(rows)),
	}
	for _, r := range rows {
		content.Questions = append(content.Questions, domain.Question{
			ID:            r.ID,
			QuizID:        r.QuizID,
			Text:          r.Text,
			Options:       domain.Options{A: r.OptionA, B: r.OptionB, C: r.OptionC, D: r.OptionD},
			CorrectAnswer: domain.OptionLabel(r.CorrectAnswer),
			Points:        r.Points,
			Explanation:   r.Explanation,
			OrderNumber:   r.OrderNumber,
		})
	}
	return content, nil
}

// SaveQuiz upserts a quiz and replaces its questions, keeping their slice order.
func (s *Store) SaveQuiz(ctx context.Context, content domain.QuizContent) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	quiz := content.Quiz
	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO quizzes (id, title, description, difficulty, time_limit, points_per_question)
		VALUES (:id, :title, :description, :difficulty, :time_limit, :points_per_question)
		ON CONFLICT(id) DO UPDATE SET
		  title = excluded.title, description = excluded.description, difficulty = excluded.difficulty,
		  time_limit = excluded.time_limit, points_per_question = excluded.points_per_question`,
		quizRow{
			ID:                quiz.ID,
			Title:             quiz.Title,
			Description:       quiz.Description,
			Difficulty:        string(quiz.Difficulty),
			TimeLimit:         quiz.TimeLimit,
			PointsPerQuestion: quiz.PointsPerQuestion,
		}); err != nil {
		return fmt.Errorf("upsert quiz: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE quiz_id = ?`, quiz.ID); err != nil {
		return fmt.Errorf("clear questions: %w", err)
	}
	for _, q := range content.Questions {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO questions (id, quiz_id, question_text, option_a, option_b, option_c, option_d,
			                       correct_answer, points, explanation, order_number)
			VALUES (:id, :quiz_id, :question_text, :option_a, :option_b, :option_c, :option_d,
			        :correct_answer, :points, :explanation, :order_number)`,
			questionRow{
				ID:            q.ID,
				QuizID:        quiz.ID,
				Text:          q.Text,
				OptionA:       q.Options.A,
				OptionB:       q.Options.B,
				OptionC:       q.Options.C,
				OptionD:       q.Options.D,
				CorrectAnswer: string(q.CorrectAnswer),
				Points:        q.Points,
				Explanation:   q.Explanation,
				OrderNumber:   q.OrderNumber,
			}); err != nil {
			return fmt.Errorf("insert question %s: %w", q.ID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) InsertResult(ctx context.Context, record domain.ResultRecord) (domain.ResultRecord, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO quiz_results (id, student_id, quiz_id, score, total_questions, time_taken, completed_at)
		VALUES (:id, :student_id, :quiz_id, :score, :total_questions, :time_taken, :completed_at)`,
		resultRow{
			ID:             record.ID,
			StudentID:      record.StudentID,
			QuizID:         record.QuizID,
			Score:          record.Score,
			TotalQuestions: record.TotalQuestions,
			TimeTaken:      record.TimeTaken,
			CompletedAt:    record.CompletedAt.UnixMilli(),
		})
	if err != nil {
		return domain.ResultRecord{}, fmt.Errorf("insert result: %w", err)
	}
	return record, nil
}

// ResultsFor lists a learner's results, newest first.
func (s *Store) ResultsFor(ctx context.Context, studentID string) ([]domain.ResultRecord, error) {
	var rows []resultRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM quiz_results WHERE student_id = ? ORDER BY completed_at DESC`, studentID); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	out := make([]domain.ResultRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.ResultRecord{
			ID:             r.ID,
			StudentID:      r.StudentID,
			QuizID:         r.QuizID,
			Score:          r.Score,
			TotalQuestions: r.TotalQuestions,
			TimeTaken:      r.TimeTaken,
			CompletedAt:    time.UnixMilli(r.CompletedAt).UTC(),
		})
	}
	return out, nil
}

func (s *Store) FetchLearnerAggregate(ctx context.Context, studentID string) (domain.LearnerAggregate, error) {
	agg := domain.LearnerAggregate{StudentID: studentID}
	err := s.db.QueryRowxContext(ctx, `SELECT total_points, level FROM students WHERE id = ?`, studentID).
		Scan(&agg.TotalPoints, &agg.Level)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.LearnerAggregate{StudentID: studentID, Level: 1}, nil
	}
	if err != nil {
		return domain.LearnerAggregate{}, fmt.Errorf("fetch learner: %w", err)
	}
	return agg, nil
}

func (s *Store) UpdateLearnerAggregate(ctx context.Context, studentID string, totalPoints, level int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO students (id, total_points, level) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET total_points = excluded.total_points, level = excluded.level`,
		studentID, totalPoints, level)
	if err != nil {
		return fmt.Errorf("update learner: %w", err)
	}
	return nil
}

// AddPoints increments the total and recomputes the level in a single statement.
func (s *Store) AddPoints(ctx context.Context, studentID string, delta int) (domain.LearnerAggregate, error) {
	agg := domain.LearnerAggregate{StudentID: studentID}
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO students (id, total_points, level) VALUES (?1, ?2, MAX(?2, 0) / 100 + 1)
		ON CONFLICT(id) DO UPDATE SET
		  total_points = total_points + excluded.total_points,
		  level = MAX(total_points + excluded.total_points, 0) / 100 + 1
		RETURNING total_points, level`, studentID, delta).
		Scan(&agg.TotalPoints, &agg.Level)
	if err != nil {
		return domain.LearnerAggregate{}, fmt.Errorf("add points: %w", err)
	}
	return agg, nil
}
