package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// RedisStakeLocker serialises matchmaking joins per stake tier across processes
type RedisStakeLocker struct {
	client    *redis.Client
	ttl       time.Duration
	retryWait time.Duration
}

// NewRedisStakeLocker creates a locker whose locks expire after ttl if never released
func NewRedisStakeLocker(client *redis.Client, ttl time.Duration) *RedisStakeLocker {
	return &RedisStakeLocker{
		client:    client,
		ttl:       ttl,
		retryWait: 25 * time.Millisecond,
	}
}

func stakeLockKey(stake int64) string {
	return fmt.Sprintf("%sstake-lock:%d", keyPrefix, stake)
}

// Lock blocks until the tier lock is taken or ctx ends
func (l *RedisStakeLocker) Lock(ctx context.Context, stake int64) (func(), error) {
	key := stakeLockKey(stake)
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to take stake lock %d: %w", stake, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for stake lock %d: %w", stake, ctx.Err())
		case <-time.After(l.retryWait):
		}
	}

	release := func() {
		// The request context may already be done by the time the lock is released
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := l.client.Eval(releaseCtx, releaseScript, []string{key}, token).Err(); err != nil {
			log.WithFields(log.Fields{
				"stake": stake,
				"error": err,
			}).Warn("Failed to release stake lock")
		}
	}
	return release, nil
}
