package locks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"maintline/internal/domain"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker shares locks between processes through SET NX PX. The TTL
// bounds how long a crashed holder blocks others.
type RedisLocker struct {
	Client redis.UniversalClient
	TTL    time.Duration
	Retry  time.Duration
}

func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	return &RedisLocker{Client: client, TTL: ttl, Retry: 25 * time.Millisecond}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	ttl := l.TTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	retry := l.Retry
	if retry <= 0 {
		retry = 25 * time.Millisecond
	}
	token := uuid.NewString()
	for {
		ok, err := l.Client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("acquire lock %s: %w: %w", key, domain.ErrUnavailable, ctxErr)
			}
			return nil, fmt.Errorf("acquire lock %s: %w: %w", key, domain.ErrUnavailable, err)
		}
		if ok {
			return l.releaser(key, token), nil
		}
		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("acquire lock %s: %w: %w", key, domain.ErrUnavailable, ctx.Err())
		case <-timer.C:
		}
	}
}

func (l *RedisLocker) releaser(key, token string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// A failed release is left to the TTL.
		_ = releaseScript.Run(ctx, l.Client, []string{key}, token).Err()
	}
}
