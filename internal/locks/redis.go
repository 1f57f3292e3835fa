package locks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisLocker implements the engine's PollLocker on a redis SET NX PX
// lock. The TTL bounds how long a crashed poll can block a workflow.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisLocker creates a locker with the given lock TTL.
func NewRedisLocker(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{
		client: client,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "poll_lock")),
	}
}

func lockKey(workflowID string) string {
	return "reportflow:poll:" + workflowID
}

// Acquire takes the workflow's poll lock. ok=false means another poll
// currently holds it. The returned release deletes the lock only when
// this holder still owns it.
func (l *RedisLocker) Acquire(ctx context.Context, workflowID string) (func(), bool, error) {
	key := lockKey(workflowID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// Compare-and-delete so an expired lock re-acquired by another
		// poll is never released by the previous holder.
		const script = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`
		if err := l.client.Eval(context.Background(), script, []string{key}, token).Err(); err != nil {
			l.logger.Warn("poll lock release failed",
				zap.String("workflow_id", workflowID),
				zap.Error(err),
			)
		}
	}
	return release, true, nil
}
