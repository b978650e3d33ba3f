package redis

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"

	"english-quiz-service/internal/domain"
)

// addPointsScript increments the points total and rewrites the derived level in one step.
var addPointsScript = redis.NewScript(`
local total = redis.call('HINCRBY', KEYS[1], 'total_points', ARGV[1])
local level = 1
if total > 0 then
	level = math.floor(total / 100) + 1
end
redis.call('HSET', KEYS[1], 'level', tostring(level))
return total
`)

// LearnerStore keeps learner aggregates in a hash per learner:
// HSET learner:{studentID} total_points {n} level {n}
type LearnerStore struct {
	client *redis.Client
}

func NewLearnerStore(client *redis.Client) *LearnerStore {
	return &LearnerStore{client: client}
}

func (s *LearnerStore) FetchLearnerAggregate(ctx context.Context, studentID string) (domain.LearnerAggregate, error) {
	fields, err := s.client.HGetAll(ctx, s.key(studentID)).Result()
	if err != nil && !isMiss(err) {
		return domain.LearnerAggregate{}, wrap("hgetall", err)
	}
	agg := domain.LearnerAggregate{StudentID: studentID, Level: 1}
	if v, ok := fields["total_points"]; ok {
		if agg.TotalPoints, err = strconv.Atoi(v); err != nil {
			return domain.LearnerAggregate{}, wrap("parse total_points", err)
		}
	}
	if v, ok := fields["level"]; ok {
		if agg.Level, err = strconv.Atoi(v); err != nil {
			return domain.LearnerAggregate{}, wrap("parse level", err)
		}
	}
	return agg, nil
}

func (s *LearnerStore) UpdateLearnerAggregate(ctx context.Context, studentID string, totalPoints, level int) error {
	return wrap("hset", s.client.HSet(ctx, s.key(studentID), "total_points", totalPoints, "level", level).Err())
}

// AddPoints increments a learner's points and recomputes the level atomically.
func (s *LearnerStore) AddPoints(ctx context.Context, studentID string, delta int) (domain.LearnerAggregate, error) {
	total, err := addPointsScript.Run(ctx, s.client, []string{s.key(studentID)}, delta).Int()
	if err != nil {
		return domain.LearnerAggregate{}, wrap("add points", err)
	}
	return domain.LearnerAggregate{
		StudentID:   studentID,
		TotalPoints: total,
		Level:       domain.LevelFor(total),
	}, nil
}

func (s *LearnerStore) key(studentID string) string {
	return "learner:" + studentID
}
