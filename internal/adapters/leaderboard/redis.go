package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/buzz/internal/domain/model"
	"github.com/okian/buzz/pkg/logger"
	"github.com/okian/buzz/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each category in a Redis sorted set.
type RedisStore struct {
	client redis.UniversalClient
	opts   options
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a store on top of an existing client.
func NewRedisStore(client redis.UniversalClient, opts ...Option) *RedisStore {
	return &RedisStore{client: client, opts: newOptions(opts)}
}

// UpdateScores issues every ZADD of the batch in a single pipeline.
func (s *RedisStore) UpdateScores(ctx context.Context, items []model.ScoredItem) ([]string, error) {
	start := time.Now()
	defer observe("update", start)

	writes, touched, skipped := plan(items, s.opts.minScoreThreshold)
	metrics.RecordLeaderboardWrites(len(writes), skipped)
	if len(writes) == 0 {
		return touched, nil
	}

	pipe := s.client.Pipeline()
	for _, w := range writes {
		pipe.ZAdd(ctx, s.opts.Key(w.category), redis.Z{Score: w.score, Member: w.member})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		metrics.RecordErrorByComponent("leaderboard", "update")
		return nil, fmt.Errorf("%w: zadd %d members: %v", ErrWrite, len(writes), err)
	}

	s.opts.log.Debug(ctx, "scores written",
		logger.Int("members", len(writes)),
		logger.Int("skipped", skipped),
		logger.Int("categories", len(touched)),
	)
	return touched, nil
}

// Trim drops everything ranked below the cap and refreshes the TTL.
func (s *RedisStore) Trim(ctx context.Context, categoryIDs []string) error {
	start := time.Now()
	defer observe("trim", start)

	ids := dedupeIDs(categoryIDs)
	if len(ids) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, id := range ids {
		key := s.opts.Key(id)
		pipe.ZRemRangeByRank(ctx, key, 0, int64(-(s.opts.maxCategorySize + 1)))
		pipe.Expire(ctx, key, s.opts.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		metrics.RecordErrorByComponent("leaderboard", "trim")
		return fmt.Errorf("%w: trim %d categories: %v", ErrWrite, len(ids), err)
	}
	metrics.RecordLeaderboardTrims(len(ids))
	return nil
}

// Range reads a window of one category, highest score first.
func (s *RedisStore) Range(ctx context.Context, categoryID string, offset, count int) ([]model.RankedMember, error) {
	start := time.Now()
	defer observe("range", start)

	if offset < 0 || count < 1 {
		return nil, ErrInvalidRange
	}
	zs, err := s.client.ZRevRangeWithScores(ctx, s.opts.Key(categoryID), int64(offset), int64(offset+count-1)).Result()
	if err != nil {
		metrics.RecordErrorByComponent("leaderboard", "range")
		return nil, fmt.Errorf("%w: range %s: %v", ErrRead, categoryID, err)
	}
	return members(zs), nil
}

// TopByCategories pipelines one ZREVRANGE per category.
func (s *RedisStore) TopByCategories(ctx context.Context, categoryIDs []string, n int) (map[string][]model.RankedMember, error) {
	start := time.Now()
	defer observe("top", start)

	if n < 1 {
		return nil, ErrInvalidRange
	}
	ids := dedupeIDs(categoryIDs)
	out := make(map[string][]model.RankedMember, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.ZSliceCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.ZRevRangeWithScores(ctx, s.opts.Key(id), 0, int64(n-1))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		metrics.RecordErrorByComponent("leaderboard", "top")
		return nil, fmt.Errorf("%w: top %d categories: %v", ErrRead, len(ids), err)
	}

	for i, id := range ids {
		out[id] = members(cmds[i].Val())
	}
	return out, nil
}

// Size returns ZCARD of the category.
func (s *RedisStore) Size(ctx context.Context, categoryID string) (int, error) {
	n, err := s.client.ZCard(ctx, s.opts.Key(categoryID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: zcard %s: %v", ErrRead, categoryID, err)
	}
	return int(n), nil
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func members(zs []redis.Z) []model.RankedMember {
	out := make([]model.RankedMember, 0, len(zs))
	for _, z := range zs {
		id, ok := z.Member.(string)
		if !ok {
			id = fmt.Sprint(z.Member)
		}
		out = append(out, model.RankedMember{TweetID: id, Score: z.Score})
	}
	return out
}

func observe(op string, start time.Time) {
	metrics.RecordLeaderboardLatency(op, float64(time.Since(start).Milliseconds()))
}
