package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis"
	"github.com/google/uuid"
)

// ErrLockUnavailable means the lock backend could not be reached
var ErrLockUnavailable = errors.New("cycle lock unavailable")

// CycleLock guards a sync cycle across processes. Acquire returns ok=false when
// another holder owns the lease.
type CycleLock interface {
	Acquire(ctx context.Context) (release func(), ok bool, err error)
}

// NoopLock always succeeds; in-process overlap is handled by the scheduler
type NoopLock struct{}

// Acquire implements CycleLock
func (NoopLock) Acquire(ctx context.Context) (func(), bool, error) {
	return func() {}, true, nil
}

const cycleLockKey = "rfp:sync:cycle"

// releaseScript deletes the key only while we still own it
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// RedisLock is a SETNX lease with a TTL so a crashed holder cannot block forever
type RedisLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisLock connects to addr and checks the server answers
func NewRedisLock(addr, password string, db int, ttl time.Duration) (*RedisLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 10 * time.Second,
	})
	if _, err := client.Ping().Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrLockUnavailable, err)
	}
	return NewRedisLockWithClient(client, ttl), nil
}

// NewRedisLockWithClient wraps an existing client
func NewRedisLockWithClient(client *redis.Client, ttl time.Duration) *RedisLock {
	return &RedisLock{client: client, key: cycleLockKey, ttl: ttl}
}

// Acquire implements CycleLock
func (l *RedisLock) Acquire(ctx context.Context) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.client.WithContext(ctx).SetNX(l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrLockUnavailable, err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		releaseScript.Run(l.client, []string{l.key}, token)
	}
	return release, true, nil
}

// Close releases the redis connection pool
func (l *RedisLock) Close() error {
	return l.client.Close()
}
