// Package lock provides the cross-process guard that keeps overlapping
// unlock sweeps from running on several server replicas at once.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/memorylane/internal/common"
)

var (
	// ErrNotAcquired means another holder owns the lock.
	ErrNotAcquired = errors.New("lock not acquired")
	// ErrLeaseLost means the lease expired and the key may have a new owner.
	ErrLeaseLost = errors.New("lock lease lost")
)

// Lease is a held lock.
type Lease interface {
	// Extend moves the expiry to ttl from now. It returns ErrLeaseLost when
	// the key no longer carries this lease.
	Extend(ctx context.Context, ttl time.Duration) error
	// Release gives the lock back. Releasing an expired lease is not an error.
	Release(ctx context.Context) error
}

// Locker hands out short-lived exclusive leases.
type Locker interface {
	// TryLock returns ErrNotAcquired when the key is already held.
	TryLock(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// RedisLocker leases keys with SET NX PX and releases them only when the
// stored token still matches.
type RedisLocker struct {
	client redis.UniversalClient
	token  func() (string, error)
}

func NewRedisLocker(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: client, token: func() (string, error) { return common.MakeRandHexString(16) }}
}

// NewRedisClient parses a redis:// URL and checks connectivity.
func NewRedisClient(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	token, err := l.token()
	if err != nil {
		return nil, err
	}

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return nil, ErrNotAcquired
	}
	return &redisLease{client: l.client, key: key, token: token}, nil
}

type redisLease struct {
	client redis.UniversalClient
	key    string
	token  string
}

func (l *redisLease) Extend(ctx context.Context, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, l.client, []string{l.key}, l.token, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("redis extend: %w", err)
	}
	if n == 0 {
		return ErrLeaseLost
	}
	return nil
}

func (l *redisLease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis release: %w", err)
	}
	return nil
}

// LocalLocker always grants the lease. It is used when no Redis is
// configured and the process is the only sweeper.
type LocalLocker struct{}

func (LocalLocker) TryLock(context.Context, string, time.Duration) (Lease, error) {
	return NopLease{}, nil
}

// NopLease is a lease that never expires.
type NopLease struct{}

func (NopLease) Extend(context.Context, time.Duration) error { return nil }
func (NopLease) Release(context.Context) error               { return nil }
