package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisLimiter keeps a sliding window per key in a redis sorted set scored by
// request time. Limits are shared across API replicas.
type RedisLimiter struct {
	Client *redis.Client
	Prefix string
	Now    func() time.Time
}

// Allow records the request and reports whether the key is within max requests per window.
// Rejected requests are not counted against the window.
func (l RedisLimiter) Allow(ctx context.Context, key string, window time.Duration, max int) (bool, int, time.Time, error) {
	now := time.Now()
	if l.Now != nil {
		now = l.Now()
	}
	if l.Client == nil || max <= 0 || window <= 0 {
		return true, max, now.Add(window), nil
	}

	redisKey := key
	if l.Prefix != "" {
		redisKey = l.Prefix + ":" + key
	}
	member := strconv.FormatInt(now.UnixNano(), 10) + "-" + uuid.NewString()
	cutoff := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", "("+cutoff)
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	countCmd := pipe.ZCard(ctx, redisKey)
	oldestCmd := pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
	pipe.PExpire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, now.Add(window), err
	}

	reset := now.Add(window)
	if oldest := oldestCmd.Val(); len(oldest) == 1 {
		reset = time.Unix(0, int64(oldest[0].Score)).Add(window)
	}
	current := int(countCmd.Val())
	if current > max {
		if err := l.Client.ZRem(ctx, redisKey, member).Err(); err != nil {
			return false, 0, reset, err
		}
		return false, 0, reset, nil
	}
	return true, max - current, reset, nil
}
