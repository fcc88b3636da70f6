package sequence

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "counter:"

// RedisAllocator uses INCR, which creates a missing key at 0 before
// incrementing it.
type RedisAllocator struct {
	client redis.Cmdable
	key    string
}

// NewRedisAllocator binds an allocator to one named counter.
func NewRedisAllocator(client redis.Cmdable, name string) *RedisAllocator {
	return &RedisAllocator{client: client, key: redisKeyPrefix + name}
}

func (a *RedisAllocator) Allocate(ctx context.Context) (int64, error) {
	if a.client == nil {
		return 0, allocationFailed(errors.New("redis client not configured"))
	}
	value, err := a.client.Incr(ctx, a.key).Result()
	if err != nil {
		return 0, allocationFailed(err)
	}
	if value <= 0 {
		return 0, allocationFailed(nil)
	}
	return value, nil
}

func (a *RedisAllocator) Current(ctx context.Context) (int64, error) {
	if a.client == nil {
		return 0, errors.New("redis client not configured")
	}
	raw, err := a.client.Get(ctx, a.key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}
