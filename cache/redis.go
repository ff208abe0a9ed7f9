package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a Cache shared between service instances. Values are JSON encoded
// and carry a server-side expiry equal to the entry TTL.
type Redis struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// RedisOption configures a Redis cache.
type RedisOption func(*Redis)

// WithPrefix namespaces every key written by the cache.
func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// WithRedisClock replaces the wall clock used for expiry checks.
func WithRedisClock(now func() time.Time) RedisOption {
	return func(r *Redis) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, opts ...RedisOption) (*Redis, error) {
	if client == nil {
		return nil, ErrClientRequired
	}
	r := &Redis{client: client, prefix: "suggestit:cache:", now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// DialRedis connects to addr and verifies the connection.
func DialRedis(ctx context.Context, addr string, db int, opts ...RedisOption) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewRedis(client, opts...)
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, fingerprint string) (*Entry, bool, error) {
	data, err := r.client.Get(ctx, r.prefix+fingerprint).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, fmt.Errorf("decode cache entry: %w", err)
	}
	if entry.Expired(r.now()) {
		return nil, false, nil
	}
	return &entry, true, nil
}

// Put implements Cache.
func (r *Redis) Put(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return ErrEntryRequired
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	return r.client.Set(ctx, r.prefix+entry.Fingerprint, data, entry.TTL).Err()
}

// Close implements Cache.
func (r *Redis) Close() error {
	return r.client.Close()
}
