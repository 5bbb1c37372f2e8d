package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/sheepy-gateway/internal/interfaces"
	"github.com/akylbek/payment-system/sheepy-gateway/internal/telemetry"
)

// DefaultLockTTL bounds how long a crashed holder can block an order.
const DefaultLockTTL = 30 * time.Second

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type RedisOrderLock struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisOrderLock(client *redis.Client, ttl time.Duration) *RedisOrderLock {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RedisOrderLock{client: client, ttl: ttl}
}

func (l *RedisOrderLock) Acquire(ctx context.Context, reference string) (func(), error) {
	lockKey := fmt.Sprintf("order_lock:%s", reference)
	token := uuid.NewString()

	locked, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock for order %s: %w", reference, err)
	}
	if !locked {
		return nil, interfaces.ErrOrderLocked
	}

	return func() {
		if err := releaseScript.Run(context.Background(), l.client, []string{lockKey}, token).Err(); err != nil {
			telemetry.Logger.Warn("Failed to release order lock",
				zap.String("reference", reference),
				zap.Error(err),
			)
		}
	}, nil
}
