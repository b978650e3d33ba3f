package redis

import (
	"context"
	"sync"
	"testing"
)

func TestLearnerStoreDefaultsAndUpdates(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewLearnerStore(client)
	ctx := context.Background()

	agg, err := store.FetchLearnerAggregate(ctx, "u1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if agg.TotalPoints != 0 || agg.Level != 1 {
		t.Fatalf("expected new learner at level 1, got %+v", agg)
	}

	if err := store.UpdateLearnerAggregate(ctx, "u1", 120, 2); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := mr.HGet("learner:u1", "total_points"); got != "120" {
		t.Fatalf("expected total_points 120 in hash, got %q", got)
	}
	agg, err = store.FetchLearnerAggregate(ctx, "u1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if agg.TotalPoints != 120 || agg.Level != 2 {
		t.Fatalf("unexpected aggregate %+v", agg)
	}
}

func TestLearnerStoreAddPointsIsAtomic(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewLearnerStore(client)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.AddPoints(ctx, "u1", 25); err != nil {
				t.Errorf("add points: %v", err)
			}
		}()
	}
	wg.Wait()

	agg, err := store.FetchLearnerAggregate(ctx, "u1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if agg.TotalPoints != 250 || agg.Level != 3 {
		t.Fatalf("expected 250 points at level 3, got %+v", agg)
	}
	if got := mr.HGet("learner:u1", "level"); got != "3" {
		t.Fatalf("expected level field rewritten, got %q", got)
	}
}
