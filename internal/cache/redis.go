package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// scanBatch is the COUNT hint used while walking keys for DeletePattern.
const scanBatch = 100

// Options configures a Redis cache.
type Options struct {
	Addr         string
	Password     string
	DB           int
	Prefix       string
	DialTimeout  time.Duration
	MaxRetries   int
	PoolSize     int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Redis implements Cache on a Redis server.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis connects to the server described by opts. The connection is
// established lazily; use Ping to check it.
func NewRedis(opts Options) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		MaxRetries:   opts.MaxRetries,
		PoolSize:     opts.PoolSize,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	})
	return &Redis{client: client, prefix: opts.Prefix}
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

// Get decodes the value stored at key into dst.
func (r *Redis) Get(ctx context.Context, key string, dst any) error {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("cache decode %s: %w", key, err)
	}
	return nil
}

// Set stores value at key for ttl.
func (r *Redis) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	switch {
	case ttl == 0:
		ttl = DefaultTTL
	case ttl < 0:
		ttl = 0
	}
	if err := r.client.Set(ctx, r.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete removes the given keys.
func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// DeletePattern removes every key matching pattern. Keys are found with SCAN
// so the server is never blocked by a full keyspace walk.
func (r *Redis) DeletePattern(ctx context.Context, pattern string) (int, error) {
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.key(pattern), scanBatch).Result()
		if err != nil {
			return deleted, fmt.Errorf("cache scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			n, err := r.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("cache delete %s: %w", pattern, err)
			}
			deleted += int(n)
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

// Exists reports whether key is present.
func (r *Redis) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("cache exists %s: %w", key, err)
	}
	return n == 1, nil
}

// Expire sets a new ttl on key.
func (r *Redis) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.Expire(ctx, r.key(key), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("cache expire %s: %w", key, err)
	}
	return ok, nil
}

// TTL returns the remaining lifetime of key.
func (r *Redis) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := r.client.TTL(ctx, r.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("cache ttl %s: %w", key, err)
	}
	// go-redis reports -2 (absent) and -1 (no expiry) as raw nanosecond values.
	switch d {
	case -2:
		return 0, ErrMiss
	case -1:
		return -1, nil
	}
	return d, nil
}

// Incr atomically increments the integer at key.
func (r *Redis) Incr(ctx context.Context, key string) (int64, error) {
	n, err := r.client.Incr(ctx, r.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("cache incr %s: %w", key, err)
	}
	return n, nil
}

// Decr atomically decrements the integer at key.
func (r *Redis) Decr(ctx context.Context, key string) (int64, error) {
	n, err := r.client.Decr(ctx, r.key(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("cache decr %s: %w", key, err)
	}
	return n, nil
}

// LPush prepends values to the list at key.
func (r *Redis) LPush(ctx context.Context, key string, values ...string) (int64, error) {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	n, err := r.client.LPush(ctx, r.key(key), args...).Result()
	if err != nil {
		return 0, fmt.Errorf("cache lpush %s: %w", key, err)
	}
	return n, nil
}

// LPop removes and returns the head of the list at key.
func (r *Redis) LPop(ctx context.Context, key string) (string, error) {
	v, err := r.client.LPop(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	if err != nil {
		return "", fmt.Errorf("cache lpop %s: %w", key, err)
	}
	return v, nil
}

// LRange returns list elements between start and stop inclusive.
func (r *Redis) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	vs, err := r.client.LRange(ctx, r.key(key), start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("cache lrange %s: %w", key, err)
	}
	return vs, nil
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
