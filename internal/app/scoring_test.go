package app

import (
	"math/rand"
	"testing"
	"time"

	"english-quiz-service/internal/domain"
)

func TestScoreBoundsAndPoints(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	labels := []domain.OptionLabel{"A", "B", "C", "D"}
	quiz := domain.Quiz{ID: "quiz", TimeLimit: 60, PointsPerQuestion: 2}

	for round := 0; round < 200; round++ {
		n := 1 + rnd.Intn(12)
		questions := make([]domain.Question, n)
		answers := domain.Answers{}
		wantCorrect, wantPoints := 0, 0
		for i := range questions {
			q := domain.Question{
				ID:            string(rune('a' + i)),
				CorrectAnswer: labels[rnd.Intn(4)],
				Points:        rnd.Intn(4),
			}
			questions[i] = q
			switch rnd.Intn(3) {
			case 0: // unanswered
			case 1:
				answers[q.ID] = q.CorrectAnswer
				wantCorrect++
				wantPoints += q.Points
			default:
				answers[q.ID] = wrongLabel(q.CorrectAnswer)
			}
		}

		result := Score(quiz, questions, answers, 10, time.Time{})
		if result.CorrectCount < 0 || result.CorrectCount > result.TotalQuestions {
			t.Fatalf("correct count %d out of bounds for %d questions", result.CorrectCount, result.TotalQuestions)
		}
		if result.CorrectCount != wantCorrect || result.PointsEarned != wantPoints {
			t.Fatalf("round %d: got correct=%d points=%d, want %d/%d", round, result.CorrectCount, result.PointsEarned, wantCorrect, wantPoints)
		}
		want := 100 * float64(wantCorrect) / float64(n)
		if result.ScorePercentage != want {
			t.Fatalf("round %d: score %v, want %v", round, result.ScorePercentage, want)
		}
	}
}

func TestScoreKeepsFullPrecision(t *testing.T) {
	questions := []domain.Question{
		{ID: "q1", CorrectAnswer: "A"},
		{ID: "q2", CorrectAnswer: "A"},
		{ID: "q3", CorrectAnswer: "A"},
	}
	result := Score(domain.Quiz{TimeLimit: 30}, questions, domain.Answers{"q1": "A"}, 0, time.Time{})
	if result.ScorePercentage <= 33.33 || result.ScorePercentage >= 33.34 {
		t.Fatalf("expected unrounded 33.33..., got %v", result.ScorePercentage)
	}
	if result.RoundedScore != 33 {
		t.Fatalf("expected display score 33, got %d", result.RoundedScore)
	}
	if result.PointsEarned != 0 {
		t.Fatalf("expected questions without points to earn nothing, got %d", result.PointsEarned)
	}
}

func TestScoreZeroPointQuestionAddsNothing(t *testing.T) {
	questions := []domain.Question{
		{ID: "free", CorrectAnswer: "A"},
		{ID: "worth", CorrectAnswer: "B", Points: 7},
	}
	answers := domain.Answers{"free": "A", "worth": "B"}

	result := Score(domain.Quiz{TimeLimit: 60}, questions, answers, 30, time.Time{})
	if result.CorrectCount != 2 || result.PointsEarned != 7 {
		t.Fatalf("expected 2 correct worth 7 points, got %d/%d", result.CorrectCount, result.PointsEarned)
	}
	if result.RoundedScore != 100 {
		t.Fatalf("expected display score 100, got %d", result.RoundedScore)
	}

	// The quiz default is not applied while scoring.
	result = Score(domain.Quiz{TimeLimit: 60, PointsPerQuestion: 5}, questions[:1], answers, 30, time.Time{})
	if result.PointsEarned != 0 {
		t.Fatalf("expected 0 points for a 0-point question, got %d", result.PointsEarned)
	}
}

func TestWithDefaultPoints(t *testing.T) {
	quiz := domain.Quiz{PointsPerQuestion: 5}
	if got := (domain.Question{}).WithDefaultPoints(quiz).Points; got != 5 {
		t.Fatalf("expected quiz default 5, got %d", got)
	}
	if got := (domain.Question{Points: 3}).WithDefaultPoints(quiz).Points; got != 3 {
		t.Fatalf("expected explicit points kept, got %d", got)
	}
	if got := (domain.Question{}).WithDefaultPoints(domain.Quiz{}).Points; got != 0 {
		t.Fatalf("expected no points without a quiz default, got %d", got)
	}
}

func TestScoreClampsTimeUsed(t *testing.T) {
	quiz := domain.Quiz{TimeLimit: 30}
	if got := Score(quiz, nil, nil, 45, time.Time{}).TimeUsed; got != 0 {
		t.Fatalf("expected time used clamped to 0, got %d", got)
	}
	if got := Score(quiz, nil, nil, 0, time.Time{}).TimeUsed; got != 30 {
		t.Fatalf("expected full time used, got %d", got)
	}
}

func wrongLabel(correct domain.OptionLabel) domain.OptionLabel {
	if correct == "A" {
		return "B"
	}
	return "A"
}
