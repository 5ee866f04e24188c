package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// renewOrAcquireScript extends the lease for its current owner, or takes it when free
const renewOrAcquireScript = `
local owner = redis.call('GET', KEYS[1])
if owner == ARGV[1] then
	redis.call('PEXPIRE', KEYS[1], ARGV[2])
	return 1
end
if not owner then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
	return 1
end
return 0`

// RedisSweepLease lets a single replica run the staleness sweep at a time
type RedisSweepLease struct {
	client *redis.Client
	key    string
	owner  string
}

// NewRedisSweepLease creates a lease identified by a fresh owner token
func NewRedisSweepLease(client *redis.Client) *RedisSweepLease {
	return &RedisSweepLease{
		client: client,
		key:    keyPrefix + "sweep-lease",
		owner:  uuid.NewString(),
	}
}

// TryAcquire takes or renews the lease for ttl
func (l *RedisSweepLease) TryAcquire(ctx context.Context, ttl time.Duration) (bool, error) {
	held, err := l.client.Eval(ctx, renewOrAcquireScript, []string{l.key}, l.owner, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to acquire sweep lease: %w", err)
	}
	return held == 1, nil
}

// Release gives the lease up on shutdown. A lease already taken by another owner is
// left alone.
func (l *RedisSweepLease) Release(ctx context.Context) error {
	if err := l.client.Eval(ctx, releaseScript, []string{l.key}, l.owner).Err(); err != nil {
		return fmt.Errorf("failed to release sweep lease: %w", err)
	}
	return nil
}
