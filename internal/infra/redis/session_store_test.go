package redis

import (
	"net"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"english-quiz-service/internal/app"
	"english-quiz-service/internal/infra/memory"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewSessionStore(client, time.Minute)

	session := app.NewSession("s-1", app.SessionContext{StudentID: "u1"}, "quiz-1", app.DataAccess{
		Quizzes:  memory.NewQuizRepository(memory.NewStaticQuizLoader(nil), time.Minute),
		Results:  memory.NewResultStore(),
		Learners: memory.NewLearnerStore(),
	})
	store.Put(session)
	if got, err := mr.Get("quiz:session:s-1"); err != nil || got != "u1" {
		t.Fatalf("expected liveness key holding the learner, got %q (%v)", got, err)
	}
	if _, ok := store.Get("s-1"); !ok {
		t.Fatalf("expected session to be stored locally")
	}

	mr.FastForward(50 * time.Second)
	if n := len(store.List()); n != 1 {
		t.Fatalf("expected one listed session, got %d", n)
	}
	if ttl := mr.TTL("quiz:session:s-1"); ttl != time.Minute {
		t.Fatalf("expected listing to refresh ttl, got %s", ttl)
	}

	store.Delete("s-1")
	if mr.Exists("quiz:session:s-1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get("s-1"); ok {
		t.Fatalf("expected session removed locally")
	}
}

func TestSessionStoreBoundsStalledRedis(t *testing.T) {
	// A server that accepts connections and never answers.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		var conns []net.Conn
		defer func() {
			for _, c := range conns {
				_ = c.Close()
			}
		}()
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			conns = append(conns, c)
		}
	}()

	client := redis.NewClient(&redis.Options{
		Addr:                  ln.Addr().String(),
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		MaxRetries:            -1,
		ContextTimeoutEnabled: true,
	})
	t.Cleanup(func() { _ = client.Close() })

	store := NewSessionStore(client, time.Minute)
	store.opTimeout = 100 * time.Millisecond
	session := app.NewSession("s-1", app.SessionContext{StudentID: "u1"}, "quiz-1", app.DataAccess{
		Quizzes:  memory.NewQuizRepository(memory.NewStaticQuizLoader(nil), time.Minute),
		Results:  memory.NewResultStore(),
		Learners: memory.NewLearnerStore(),
	})

	start := time.Now()
	store.Put(session)
	if n := len(store.List()); n != 1 {
		t.Fatalf("expected one listed session, got %d", n)
	}
	store.Delete("s-1")
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("expected liveness writes to give up quickly, took %s", elapsed)
	}
	if _, ok := store.Get("s-1"); ok {
		t.Fatalf("expected session removed locally despite redis failure")
	}
}
