package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the lock key only when the caller still holds it, so
// an expired-and-reacquired lock is never released by the previous holder.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is the cross-process variant of UserLocker for deployments
// running more than one API instance. The unique partial index on carts is
// still the final backstop; this lock keeps contention off the database.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
	log    *zap.Logger
}

func NewRedisLocker(client *redis.Client, log *zap.Logger) *RedisLocker {
	return &RedisLocker{
		client: client,
		ttl:    10 * time.Second,
		retry:  25 * time.Millisecond,
		log:    log,
	}
}

func (r *RedisLocker) Lock(ctx context.Context, userID string) (func(), error) {
	key := "lock:cart:user:" + userID
	token := uuid.NewString()

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.retry):
		}
	}

	release := func() {
		// the request context may be gone by release time
		if err := releaseScript.Run(context.Background(), r.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
			r.log.Warn("failed to release user lock", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return release, nil
}
