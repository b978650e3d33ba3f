package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"english-quiz-service/internal/app"
	"english-quiz-service/internal/config"
	"english-quiz-service/internal/domain"
	"english-quiz-service/internal/importer"
	"english-quiz-service/internal/infra/memory"
	"english-quiz-service/internal/infra/postgres"
	redisinfra "english-quiz-service/internal/infra/redis"
	"english-quiz-service/internal/infra/sqlite"
)

// backends is the storage wiring picked from config: Postgres, else SQLite, else memory,
// with Redis in front for caching, liveness and (without SQL) learner aggregates.
type backends struct {
	data     app.DataAccess
	sessions app.SessionRepository
	saver    importer.Saver // nil for the in-memory sample data
	redis    *redisinfra.QuizRepository
	closers  []func()
}

func openBackends(ctx context.Context, cfg config.Config, log *zap.Logger) (*backends, error) {
	b := &backends{}
	var loader memory.QuizLoader

	switch {
	case cfg.Postgres.URL != "":
		if err := runMigrations(ctx, cfg, log); err != nil {
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
		quizzes := postgres.NewQuizLoader(pool)
		loader, b.saver = quizzes, quizzes
		b.data.Results = postgres.NewResultStore(pool)
		b.data.Learners = postgres.NewLearnerStore(pool)
		log.Info("using postgres storage")
	case cfg.SQLite.Path != "":
		if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		store, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = store.Close() })
		loader, b.saver = store, store
		b.data.Results = store
		b.data.Learners = store
		log.Info("using sqlite storage", zap.String("path", cfg.SQLite.Path))
	default:
		loader = memory.NewStaticQuizLoader(sampleQuizzes())
		b.data.Results = memory.NewResultStore()
		b.data.Learners = memory.NewLearnerStore()
		log.Warn("no database configured, serving sample quizzes from memory")
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if cfg.Redis.Addr == "" {
		b.data.Quizzes = memory.NewQuizRepository(loader, quizTTL)
		b.sessions = memory.NewSessionStore()
		return b, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:                  cfg.Redis.Addr,
		Password:              cfg.Redis.Password,
		DB:                    cfg.Redis.DB,
		ContextTimeoutEnabled: true,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		b.close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	b.closers = append(b.closers, func() { _ = client.Close() })

	b.redis = redisinfra.NewQuizRepository(client, loader, quizTTL)
	b.data.Quizzes = b.redis
	b.sessions = redisinfra.NewSessionStore(client, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	if b.saver == nil {
		b.data.Learners = redisinfra.NewLearnerStore(client)
	}
	log.Info("using redis cache", zap.String("addr", cfg.Redis.Addr))
	return b, nil
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// sampleQuizzes is served when no database is configured.
func sampleQuizzes() map[string]domain.QuizContent {
	quiz := domain.Quiz{
		ID:                "sample-past-simple",
		Title:             "Past simple basics",
		Description:       "Pick the correct past form.",
		Difficulty:        domain.DifficultyEasy,
		TimeLimit:         120,
		PointsPerQuestion: 10,
	}
	return map[string]domain.QuizContent{
		quiz.ID: {
			Quiz: quiz,
			Questions: []domain.Question{
				{ID: "sample-1", QuizID: quiz.ID, Text: "Yesterday she ___ to the market.", Options: domain.Options{A: "go", B: "goes", C: "went", D: "gone"}, CorrectAnswer: domain.OptionC, OrderNumber: 1},
				{ID: "sample-2", QuizID: quiz.ID, Text: "They ___ football last weekend.", Options: domain.Options{A: "played", B: "play", C: "playing", D: "plays"}, CorrectAnswer: domain.OptionA, OrderNumber: 2},
				{ID: "sample-3", QuizID: quiz.ID, Text: "I ___ a strange noise last night.", Options: domain.Options{A: "hear", B: "heard", C: "hearing", D: "have heard"}, CorrectAnswer: domain.OptionB, OrderNumber: 3},
			},
		},
	}
}
