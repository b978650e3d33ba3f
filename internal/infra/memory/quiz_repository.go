package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"english-quiz-service/internal/domain"
)

// QuizLoader fetches quiz content from a backing store (e.g., Postgres or SQLite).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.QuizContent, error)
}

// QuizRepository caches quiz content with TTL to avoid repeated DB hits.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	content   domain.QuizContent
	expiresAt time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuiz),
	}
}

func (r *QuizRepository) FetchQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	content, err := r.content(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	return content.Quiz, nil
}

func (r *QuizRepository) FetchQuestions(ctx context.Context, quizID string) ([]domain.Question, error) {
	content, err := r.content(ctx, quizID)
	if err != nil {
		return nil, err
	}
	questions := make([]domain.Question, len(content.Questions))
	copy(questions, content.Questions)
	return questions, nil
}

// Invalidate drops a cached quiz, e.g. after an import rewrote it.
func (r *QuizRepository) Invalidate(quizID string) {
	r.mu.Lock()
	delete(r.cache, quizID)
	r.mu.Unlock()
}

func (r *QuizRepository) content(ctx context.Context, quizID string) (domain.QuizContent, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[quizID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.content, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[quizID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.content, nil
		}
		r.mu.RUnlock()

		content, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.QuizContent{}, err
		}

		ttl := r.ttlWithJitter()
		r.mu.Lock()
		r.cache[quizID] = cachedQuiz{
			content:   content,
			expiresAt: now.Add(ttl),
		}
		r.mu.Unlock()
		return content, nil
	})
	if err != nil {
		return domain.QuizContent{}, err
	}
	return result.(domain.QuizContent), nil
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.mu.Lock()
	jitter := r.rnd.Int63n(jitterMax + 1)
	r.mu.Unlock()
	return r.ttl + time.Duration(jitter)
}

// StaticQuizLoader is a simple loader backed by an in-memory map (useful for tests/demos).
// Questions keep the order they were saved in.
type StaticQuizLoader struct {
	mu      sync.RWMutex
	quizzes map[string]domain.QuizContent
}

func NewStaticQuizLoader(quizzes map[string]domain.QuizContent) *StaticQuizLoader {
	if quizzes == nil {
		quizzes = make(map[string]domain.QuizContent)
	}
	return &StaticQuizLoader{quizzes: quizzes}
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, quizID string) (domain.QuizContent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if content, ok := l.quizzes[quizID]; ok {
		return content, nil
	}
	return domain.QuizContent{}, domain.ErrQuizNotFound
}

// SaveQuiz replaces a quiz and its questions.
func (l *StaticQuizLoader) SaveQuiz(_ context.Context, content domain.QuizContent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.quizzes[content.Quiz.ID] = content
	return nil
}
