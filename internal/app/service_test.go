package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"english-quiz-service/internal/app"
	"english-quiz-service/internal/domain"
)

func TestOpenRequiresLearner(t *testing.T) {
	h := newHarness(t)
	if _, err := h.svc().Open(context.Background(), app.SessionContext{}, "quiz-4"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestGetChecksOwnership(t *testing.T) {
	h := newHarness(t)
	session := h.open(t, "quiz-4")
	ctx := context.Background()

	if _, err := h.svc().Get(ctx, learner("u2"), session.ID()); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for another learner, got %v", err)
	}
	admin := app.SessionContext{StudentID: "root", Role: domain.RoleAdmin}
	if _, err := h.svc().Get(ctx, admin, session.ID()); err != nil {
		t.Fatalf("expected admin access, got %v", err)
	}
	if _, err := h.svc().Get(ctx, learner("u1"), "missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestLeaveClosesAndForgets(t *testing.T) {
	h := newHarness(t)
	session := h.open(t, "quiz-4")
	mustStart(t, session)
	ticker := h.ticker(t)
	ctx := context.Background()

	if err := h.svc().Leave(ctx, learner("u2"), session.ID()); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected other learners to be rejected, got %v", err)
	}
	if err := h.svc().Leave(ctx, learner("u1"), session.ID()); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if !ticker.isStopped() {
		t.Fatalf("expected timer cancelled on leave")
	}
	if _, err := h.svc().Get(ctx, learner("u1"), session.ID()); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session forgotten, got %v", err)
	}
}

func TestReapIdleSkipsRunningCountdowns(t *testing.T) {
	clock := &fakeClock{now: fixedNow}
	h := newHarness(t, app.WithClock(clock.Now), app.WithIdleTTL(10*time.Minute))

	idle := h.open(t, "quiz-4")
	running := h.open(t, "quiz-4")
	mustStart(t, running)
	unavailable, _ := h.svc().Open(context.Background(), learner("u1"), "quiz-missing")

	clock.advance(5 * time.Minute)
	if n := h.svc().ReapIdle(clock.Now()); n != 0 {
		t.Fatalf("expected nothing reaped before ttl, got %d", n)
	}

	clock.advance(6 * time.Minute)
	if n := h.svc().ReapIdle(clock.Now()); n != 2 {
		t.Fatalf("expected idle and unavailable sessions reaped, got %d", n)
	}
	ctx := context.Background()
	for _, s := range []*app.Session{idle, unavailable} {
		if _, err := h.svc().Get(ctx, learner("u1"), s.ID()); !errors.Is(err, domain.ErrSessionNotFound) {
			t.Fatalf("expected %s reaped, got %v", s.ID(), err)
		}
	}
	if _, err := h.svc().Get(ctx, learner("u1"), running.ID()); err != nil {
		t.Fatalf("expected running session kept, got %v", err)
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
