package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "collector:ratelimit:"

// reserveScript 在一次调用内完成淘汰、计数和占位，多实例并发也不会超发。
// KEYS[1] window; ARGV cutoff, now, limit, member, ttl (ms)
var reserveScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
local n = redis.call('ZCARD', KEYS[1])
if n < tonumber(ARGV[3]) then
  redis.call('ZADD', KEYS[1], ARGV[2], ARGV[4])
  redis.call('PEXPIRE', KEYS[1], ARGV[5])
  return {1, n, '0'}
end
local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
return {0, n, oldest[2]}
`)

var (
	_ Limiter  = (*RedisStore)(nil)
	_ Reserver = (*RedisStore)(nil)
)

// RedisStore keeps the sliding window log in a sorted set per key so every
// instance of the service shares one window. Scores are unix milliseconds.
type RedisStore struct {
	client   redis.UniversalClient
	limit    int
	duration time.Duration
}

func NewRedisStore(client redis.UniversalClient, limit int, window time.Duration) *RedisStore {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &RedisStore{client: client, limit: limit, duration: window}
}

func (s *RedisStore) Check(ctx context.Context, key string, now time.Time) (Decision, error) {
	redisKey := redisKeyPrefix + key
	// instants at or before now-window are no longer inside the window
	cutoff := strconv.FormatInt(now.Add(-s.duration).UnixMilli(), 10)

	p := s.client.TxPipeline()
	p.ZRemRangeByScore(ctx, redisKey, "-inf", cutoff)
	count := p.ZCard(ctx, redisKey)
	oldest := p.ZRangeWithScores(ctx, redisKey, 0, 0)
	if _, err := p.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("check window for key %v: %w", key, err)
	}

	n := int(count.Val())
	if n < s.limit {
		return admit(s.limit, n), nil
	}

	entries := oldest.Val()
	if len(entries) == 0 {
		return admit(s.limit, 0), nil
	}
	oldestAt := time.UnixMilli(int64(entries[0].Score))
	return reject(s.duration, now, oldestAt), nil
}

func (s *RedisStore) Record(ctx context.Context, key string, now time.Time) error {
	redisKey := redisKeyPrefix + key

	p := s.client.TxPipeline()
	p.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: uuid.NewString(),
	})
	p.PExpire(ctx, redisKey, s.duration)
	if _, err := p.Exec(ctx); err != nil {
		return fmt.Errorf("record attempt for key %v: %w", key, err)
	}
	return nil
}

// Reserve atomically checks key and claims a slot when admitted. The token is
// the sorted set member to pass to Release.
func (s *RedisStore) Reserve(ctx context.Context, key string, now time.Time) (Decision, string, error) {
	member := uuid.NewString()
	res, err := reserveScript.Run(ctx, s.client, []string{redisKeyPrefix + key},
		now.Add(-s.duration).UnixMilli(),
		now.UnixMilli(),
		s.limit,
		member,
		s.duration.Milliseconds(),
	).Slice()
	if err != nil {
		return Decision{}, "", fmt.Errorf("reserve slot for key %v: %w", key, err)
	}
	if len(res) != 3 {
		return Decision{}, "", fmt.Errorf("reserve slot for key %v: unexpected reply %v", key, res)
	}

	allowed, _ := res[0].(int64)
	count, _ := res[1].(int64)
	if allowed == 1 {
		return admit(s.limit, int(count)+1), member, nil
	}

	oldestScore, _ := res[2].(string)
	oldestMillis, err := strconv.ParseFloat(oldestScore, 64)
	if err != nil {
		return Decision{}, "", fmt.Errorf("reserve slot for key %v: bad score %q", key, oldestScore)
	}
	return reject(s.duration, now, time.UnixMilli(int64(oldestMillis))), "", nil
}

func (s *RedisStore) Release(ctx context.Context, key, token string) error {
	if err := s.client.ZRem(ctx, redisKeyPrefix+key, token).Err(); err != nil {
		return fmt.Errorf("release slot for key %v: %w", key, err)
	}
	return nil
}
