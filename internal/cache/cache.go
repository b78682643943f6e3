// Package cache provides the shared Redis cache and distributed locks.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/WailSalutem-Health-Care/emr-service/internal/config"
	"github.com/bsm/redislock"
	"github.com/go-redis/redis/v8"
)

// ReleaseLock releases a lock obtained with Lock.
type ReleaseLock func() error

// ErrLockNotObtained is returned when a lock stays held past the retry budget.
var ErrLockNotObtained = errors.New("cache: lock not obtained")

// Cache is the subset of Redis the service relies on. Implementations must
// be safe for concurrent use.
type Cache interface {
	// GetJSON decodes the value at key into out. It reports false on a miss.
	GetJSON(ctx context.Context, key string, out interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// Lock serializes work on key across replicas.
	Lock(ctx context.Context, key string) (ReleaseLock, error)
	Close() error
}

// Client is a Redis-backed Cache.
type Client struct {
	client  redis.UniversalClient
	locker  *redislock.Client
	lockTTL time.Duration
	retry   redislock.RetryStrategy
}

var _ Cache = (*Client)(nil)

// New returns a Redis client, or a Noop cache when no address is configured.
func New(cfg config.Redis) Cache {
	if cfg.Addr == "" {
		return Noop{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		MaxRetries: 3,
	})
	return NewClient(client, cfg.LockTTL)
}

// NewClient wraps an existing Redis client.
func NewClient(client redis.UniversalClient, lockTTL time.Duration) *Client {
	if lockTTL <= 0 {
		lockTTL = 35 * time.Second
	}
	return &Client{
		client:  client,
		locker:  redislock.New(client),
		lockTTL: lockTTL,
		retry:   redislock.LimitRetry(redislock.LinearBackoff(250*time.Millisecond), int(lockTTL/(250*time.Millisecond))),
	}
}

func (c *Client) GetJSON(ctx context.Context, key string, out interface{}) (bool, error) {
	b, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (c *Client) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, b, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}

func (c *Client) Lock(ctx context.Context, key string) (ReleaseLock, error) {
	lock, err := c.locker.Obtain(ctx, "lock:"+key, c.lockTTL, &redislock.Options{RetryStrategy: c.retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLockNotObtained
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}
	return func() error {
		// the lock may already have expired; that is not an error for callers
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return err
		}
		return nil
	}, nil
}

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Noop is used when Redis is not configured: every read misses and locks
// are granted immediately.
type Noop struct{}

var _ Cache = Noop{}

func (Noop) GetJSON(context.Context, string, interface{}) (bool, error) { return false, nil }

func (Noop) SetJSON(context.Context, string, interface{}, time.Duration) error { return nil }

func (Noop) Delete(context.Context, ...string) error { return nil }

func (Noop) Lock(context.Context, string) (ReleaseLock, error) {
	return func() error { return nil }, nil
}

func (Noop) Close() error { return nil }
