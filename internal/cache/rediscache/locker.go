package rediscache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Locker — advisory per-booking lock на SETNX. Держатель делает live-вызов
// провайдера, остальные отдают кэш.
type Locker struct {
	c *redis.Client
}

func NewLocker(addr string) *Locker {
	return &Locker{
		c: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.c.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "redis setnx")
	}
	return ok, nil
}

func (l *Locker) Release(ctx context.Context, key string) error {
	if err := l.c.Del(ctx, key).Err(); err != nil {
		return errors.Wrap(err, "redis del lock")
	}
	return nil
}
