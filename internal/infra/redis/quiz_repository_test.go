package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"english-quiz-service/internal/domain"
	"english-quiz-service/internal/infra/memory"
)

func TestQuizRepositoryCachesInRedis(t *testing.T) {
	mr, client := newTestRedis(t)

	loader := &countingLoader{
		QuizLoader: memory.NewStaticQuizLoader(map[string]domain.QuizContent{
			"quiz-1": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(client, loader, time.Minute)

	quiz, err := repo.FetchQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("fetch quiz: %v", err)
	}
	if quiz.Title != "Tenses" || loader.count() != 1 {
		t.Fatalf("expected loader called once, got %d (quiz %+v)", loader.count(), quiz)
	}
	if !mr.Exists("quiz:quiz-1:content") {
		t.Fatalf("expected content cached in redis")
	}

	// Second call should hit cache, loader not incremented.
	questions, err := repo.FetchQuestions(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("fetch questions: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.count())
	}
	if len(questions) != 2 || questions[1].CorrectAnswer != "C" || questions[0].Options.B != "went" {
		t.Fatalf("unexpected cached questions %+v", questions)
	}
}

func TestQuizRepositoryReloadsAfterInvalidate(t *testing.T) {
	_, client := newTestRedis(t)
	loader := &countingLoader{
		QuizLoader: memory.NewStaticQuizLoader(map[string]domain.QuizContent{"quiz-1": sampleQuiz()}),
	}
	repo := NewQuizRepository(client, loader, time.Minute)
	ctx := context.Background()

	if _, err := repo.FetchQuiz(ctx, "quiz-1"); err != nil {
		t.Fatalf("fetch quiz: %v", err)
	}
	if err := repo.Invalidate(ctx, "quiz-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := repo.FetchQuiz(ctx, "quiz-1"); err != nil {
		t.Fatalf("fetch quiz: %v", err)
	}
	if loader.count() != 2 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.count())
	}
}

func TestQuizRepositoryPropagatesNotFound(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewQuizRepository(client, memory.NewStaticQuizLoader(nil), time.Minute)

	if _, err := repo.FetchQuiz(context.Background(), "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
	if mr.Exists("quiz:missing:content") {
		t.Fatalf("expected misses not to be cached")
	}
}

type countingLoader struct {
	memory.QuizLoader
	mu    sync.Mutex
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.QuizContent, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func sampleQuiz() domain.QuizContent {
	quiz := domain.Quiz{ID: "quiz-1", Title: "Tenses", Difficulty: domain.DifficultyEasy, TimeLimit: 60, PointsPerQuestion: 10}
	return domain.QuizContent{
		Quiz: quiz,
		Questions: []domain.Question{
			{
				ID:            "q1",
				QuizID:        quiz.ID,
				Text:          "Yesterday I ___ to school.",
				Options:       domain.Options{A: "go", B: "went", C: "gone", D: "going"},
				CorrectAnswer: "B",
				OrderNumber:   1,
			},
			{
				ID:            "q2",
				QuizID:        quiz.ID,
				Text:          "She has ___ here for years.",
				Options:       domain.Options{A: "be", B: "was", C: "been", D: "being"},
				CorrectAnswer: "C",
				OrderNumber:   2,
			},
		},
	}
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}
