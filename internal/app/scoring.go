package app

import (
	"math"
	"time"

	"english-quiz-service/internal/domain"
)

// Score grades an attempt. Unanswered questions count as incorrect and earn nothing; a
// correct answer earns exactly the question's points.
func Score(quiz domain.Quiz, questions []domain.Question, answers domain.Answers, remaining int, completedAt time.Time) domain.Result {
	result := domain.Result{
		TotalQuestions: len(questions),
		CompletedAt:    completedAt,
	}
	for _, q := range questions {
		selected, ok := answers[q.ID]
		if !ok || selected != q.CorrectAnswer {
			continue
		}
		result.CorrectCount++
		result.PointsEarned += q.Points
	}
	if result.TotalQuestions > 0 {
		result.ScorePercentage = float64(result.CorrectCount) / float64(result.TotalQuestions) * 100
		result.RoundedScore = int(math.Round(result.ScorePercentage))
	}

	used := quiz.TimeLimit - remaining
	if used < 0 {
		used = 0
	}
	result.TimeUsed = used
	return result
}
