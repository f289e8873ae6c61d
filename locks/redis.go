package locks

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"engagement-engine/engine"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Connect initializes a Redis client from URL or host:port input.
func Connect(_ context.Context, redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, parseErr := redis.ParseURL(redisURL)
		if parseErr != nil {
			return nil, fmt.Errorf("parse redis url: %w", parseErr)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// releaseScript deletes the lock only if we still own it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a SET NX lease per key. TTL bounds how long a crashed
// holder can block the user.
type RedisLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{client: client, prefix: "engage:lock:", ttl: ttl, retry: 25 * time.Millisecond}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s: %v", engine.ErrLockTimeout, key, ctx.Err())
			}
			return nil, fmt.Errorf("%w: acquire %s: %v", engine.ErrLockTimeout, key, err)
		}
		if ok {
			break
		}
		select {
		case <-time.After(l.retry):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", engine.ErrLockTimeout, key, ctx.Err())
		}
	}

	return func() {
		// release with a fresh context so a cancelled request still frees the lease
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err(); err != nil {
			log.Printf("⚠️ [LOCK] release %s failed: %v", redisKey, err)
		}
	}, nil
}
