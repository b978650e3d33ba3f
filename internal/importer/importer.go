package importer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"english-quiz-service/internal/domain"
)

const (
	QuizzesSheet   = "Quizzes"
	QuestionsSheet = "Questions"
)

var (
	quizHeader     = []interface{}{"id", "title", "description", "difficulty", "time_limit", "points_per_question"}
	questionHeader = []interface{}{"quiz_id", "id", "question_text", "option_a", "option_b", "option_c", "option_d", "correct_answer", "points", "explanation", "order_number"}
)

// Saver persists one quiz with its questions.
type Saver interface {
	SaveQuiz(ctx context.Context, content domain.QuizContent) error
}

// Result holds the result of an import operation.
type Result struct {
	QuizIDs   []string
	Quizzes   int
	Questions int
	Skipped   int
	Errors    []string
}

// Import reads a workbook and saves every valid quiz. Bad rows are skipped and reported
// in Result.Errors; only an unreadable workbook or a failed save aborts the import.
func Import(ctx context.Context, path string, saver Saver, log *zap.Logger) (*Result, error) {
	contents, result, err := ReadWorkbook(path)
	if err != nil {
		return nil, err
	}
	for _, content := range contents {
		if err := saver.SaveQuiz(ctx, content); err != nil {
			return result, fmt.Errorf("save quiz %s: %w", content.Quiz.ID, err)
		}
		result.Quizzes++
		result.QuizIDs = append(result.QuizIDs, content.Quiz.ID)
		result.Questions += len(content.Questions)
		log.Info("imported quiz",
			zap.String("quiz_id", content.Quiz.ID),
			zap.Int("questions", len(content.Questions)))
	}
	return result, nil
}

// ReadWorkbook parses the Quizzes and Questions sheets. Questions keep their row order,
// which becomes insertion order when saved.
func ReadWorkbook(path string) ([]domain.QuizContent, *Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	quizRows, err := f.GetRows(QuizzesSheet)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s sheet: %w", QuizzesSheet, err)
	}
	questionRows, err := f.GetRows(QuestionsSheet)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s sheet: %w", QuestionsSheet, err)
	}

	result := &Result{Errors: make([]string, 0)}
	var order []string
	byID := make(map[string]*domain.QuizContent)

	for i, row := range quizRows {
		if i == 0 || blank(row) {
			continue
		}
		quiz, err := parseQuiz(row)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("%s row %d: %v", QuizzesSheet, i+1, err))
			continue
		}
		if _, dup := byID[quiz.ID]; dup {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("%s row %d: duplicate quiz id %q", QuizzesSheet, i+1, quiz.ID))
			continue
		}
		byID[quiz.ID] = &domain.QuizContent{Quiz: quiz}
		order = append(order, quiz.ID)
	}

	for i, row := range questionRows {
		if i == 0 || blank(row) {
			continue
		}
		content, ok := byID[cell(row, 0)]
		if !ok {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("%s row %d: unknown quiz %q", QuestionsSheet, i+1, cell(row, 0)))
			continue
		}
		question, err := parseQuestion(row, content.Quiz.ID, len(content.Questions)+1)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("%s row %d: %v", QuestionsSheet, i+1, err))
			continue
		}
		content.Questions = append(content.Questions, question)
	}

	out := make([]domain.QuizContent, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out, result, nil
}

// WriteWorkbook writes quizzes in the layout ReadWorkbook expects.
func WriteWorkbook(path string, contents []domain.QuizContent) error {
	f := excelize.NewFile()
	defer f.Close()

	for _, sheet := range []string{QuizzesSheet, QuestionsSheet} {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create %s sheet: %w", sheet, err)
		}
	}
	if err := f.SetSheetRow(QuizzesSheet, "A1", &quizHeader); err != nil {
		return err
	}
	if err := f.SetSheetRow(QuestionsSheet, "A1", &questionHeader); err != nil {
		return err
	}

	quizRow, questionRow := 2, 2
	for _, content := range contents {
		q := content.Quiz
		row := []interface{}{q.ID, q.Title, q.Description, string(q.Difficulty), q.TimeLimit, q.PointsPerQuestion}
		if err := f.SetSheetRow(QuizzesSheet, fmt.Sprintf("A%d", quizRow), &row); err != nil {
			return err
		}
		quizRow++
		for _, question := range content.Questions {
			row := []interface{}{
				q.ID, question.ID, question.Text,
				question.Options.A, question.Options.B, question.Options.C, question.Options.D,
				string(question.CorrectAnswer), question.Points, question.Explanation, question.OrderNumber,
			}
			if err := f.SetSheetRow(QuestionsSheet, fmt.Sprintf("A%d", questionRow), &row); err != nil {
				return err
			}
			questionRow++
		}
	}
	return f.SaveAs(path)
}

func parseQuiz(row []string) (domain.Quiz, error) {
	quiz := domain.Quiz{
		ID:          cell(row, 0),
		Title:       cell(row, 1),
		Description: cell(row, 2),
		Difficulty:  domain.Difficulty(strings.ToLower(cell(row, 3))),
	}
	if quiz.ID == "" || quiz.Title == "" {
		return domain.Quiz{}, fmt.Errorf("id and title are required")
	}
	if quiz.Difficulty == "" {
		quiz.Difficulty = domain.DifficultyEasy
	}
	if !quiz.Difficulty.Valid() {
		return domain.Quiz{}, fmt.Errorf("unknown difficulty %q", quiz.Difficulty)
	}
	var err error
	if quiz.TimeLimit, err = intCell(row, 4, 0); err != nil || quiz.TimeLimit < 0 {
		return domain.Quiz{}, fmt.Errorf("invalid time_limit %q", cell(row, 4))
	}
	if quiz.PointsPerQuestion, err = intCell(row, 5, 0); err != nil {
		return domain.Quiz{}, fmt.Errorf("invalid points_per_question %q", cell(row, 5))
	}
	return quiz, nil
}

func parseQuestion(row []string, quizID string, position int) (domain.Question, error) {
	q := domain.Question{
		ID:            cell(row, 1),
		QuizID:        quizID,
		Text:          cell(row, 2),
		Options:       domain.Options{A: cell(row, 3), B: cell(row, 4), C: cell(row, 5), D: cell(row, 6)},
		CorrectAnswer: domain.OptionLabel(strings.ToUpper(cell(row, 7))),
		Explanation:   cell(row, 9),
	}
	if q.ID == "" {
		q.ID = fmt.Sprintf("%s-q%d", quizID, position)
	}
	if q.Text == "" {
		return domain.Question{}, fmt.Errorf("question_text is required")
	}
	if !q.CorrectAnswer.Valid() {
		return domain.Question{}, fmt.Errorf("correct_answer must be A-D, got %q", cell(row, 7))
	}
	if q.Options.Text(q.CorrectAnswer) == "" {
		return domain.Question{}, fmt.Errorf("correct option %s has no text", q.CorrectAnswer)
	}
	var err error
	if q.Points, err = intCell(row, 8, 0); err != nil || q.Points < 0 {
		return domain.Question{}, fmt.Errorf("invalid points %q", cell(row, 8))
	}
	if q.OrderNumber, err = intCell(row, 10, position); err != nil {
		return domain.Question{}, fmt.Errorf("invalid order_number %q", cell(row, 10))
	}
	return q, nil
}

// cell returns the trimmed value at i; GetRows drops trailing empty cells.
func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func intCell(row []string, i, fallback int) (int, error) {
	raw := cell(row, i)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
