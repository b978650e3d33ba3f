package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"english-quiz-service/internal/app"
	"english-quiz-service/internal/domain"
	"english-quiz-service/internal/infra/postgres"
	pgmigrations "english-quiz-service/internal/infra/postgres/migrations"
	infraredis "english-quiz-service/internal/infra/redis"
)

func TestSubmitSessionEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := postgres.NewQuizLoader(pool)
	if err := loader.SaveQuiz(ctx, sampleQuiz()); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
	learners := postgres.NewLearnerStore(pool)
	if err := learners.UpdateLearnerAggregate(ctx, "u1", 95, 1); err != nil {
		t.Fatalf("seed learner: %v", err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	quizRepo := infraredis.NewQuizRepository(redisClient, loader, 5*time.Minute)
	sessionStore := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	results := postgres.NewResultStore(pool)
	service := app.NewSessionService(sessionStore, app.DataAccess{
		Quizzes:  quizRepo,
		Results:  results,
		Learners: learners,
	})

	session, err := service.Open(ctx, app.SessionContext{StudentID: "u1", DisplayName: "Alice"}, "quiz-1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := session.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	// Questions come back ordered by order_number: q1 then q2.
	if err := session.SelectAnswer("B"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if err := session.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	if err := session.SelectAnswer("A"); err != nil {
		t.Fatalf("answer: %v", err)
	}

	owned, err := service.Get(ctx, app.SessionContext{StudentID: "u1"}, session.ID())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	submitted, err := owned.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if submitted.Result.CorrectCount != 1 || submitted.Result.ScorePercentage != 50 || submitted.Result.PointsEarned != 10 {
		t.Fatalf("unexpected result %+v", submitted.Result)
	}
	if submitted.Learner.TotalPoints != 105 || submitted.Learner.Level != 2 {
		t.Fatalf("expected level up to 2 with 105 points, got %+v", submitted.Learner)
	}

	stored, err := results.ResultsFor(ctx, "u1")
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(stored) != 1 || stored[0].ID != submitted.Record.ID || stored[0].TotalQuestions != 2 {
		t.Fatalf("unexpected stored results %+v", stored)
	}
}

func TestAtomicPointsUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	learners := postgres.NewLearnerStore(pool)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := learners.AddPoints(ctx, "u1", 25); err != nil {
				t.Errorf("add points: %v", err)
			}
		}()
	}
	wg.Wait()

	agg, err := learners.FetchLearnerAggregate(ctx, "u1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if agg.TotalPoints != 200 || agg.Level != 3 {
		t.Fatalf("expected 200 points at level 3, got %+v", agg)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func sampleQuiz() domain.QuizContent {
	quiz := domain.Quiz{ID: "quiz-1", Title: "Comparatives", Difficulty: domain.DifficultyEasy, TimeLimit: 60, PointsPerQuestion: 10}
	return domain.QuizContent{
		Quiz: quiz,
		Questions: []domain.Question{
			{ID: "q2", QuizID: quiz.ID, Text: "This box is ___ than that one.", Options: domain.Options{A: "heavy", B: "heavyer", C: "more heavy", D: "heavier"}, CorrectAnswer: "D", OrderNumber: 2},
			{ID: "q1", QuizID: quiz.ID, Text: "She is ___ than her sister.", Options: domain.Options{A: "tall", B: "taller", C: "tallest", D: "more tall"}, CorrectAnswer: "B", OrderNumber: 1},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
