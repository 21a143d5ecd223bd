// Package cache is a best-effort key-value façade for memoising derived
// values. Every operation reports its failure; callers choose whether to
// ignore it and must keep a non-cached path.
package cache

import (
	"context"
	"errors"
	"time"
)

// DefaultTTL applies when Set is called with a zero ttl.
const DefaultTTL = time.Hour

// ErrMiss is returned by reads of absent keys.
var ErrMiss = errors.New("cache: miss")

// Cache stores JSON-serialised values under string keys.
type Cache interface {
	// Get decodes the value stored at key into dst.
	Get(ctx context.Context, key string, dst any) error
	// Set stores value at key for ttl. A zero ttl means DefaultTTL and a
	// negative ttl stores without expiry.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// Delete removes the given keys.
	Delete(ctx context.Context, keys ...string) error
	// DeletePattern removes every key matching a glob pattern and returns the count.
	DeletePattern(ctx context.Context, pattern string) (int, error)
	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
	// Expire sets a new ttl on key and reports whether the key existed.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// TTL returns the remaining lifetime of key. It is negative for keys
	// without expiry and ErrMiss is returned for absent keys.
	TTL(ctx context.Context, key string) (time.Duration, error)
	// Incr atomically increments the integer at key.
	Incr(ctx context.Context, key string) (int64, error)
	// Decr atomically decrements the integer at key.
	Decr(ctx context.Context, key string) (int64, error)
	// LPush prepends values to the list at key and returns its new length.
	LPush(ctx context.Context, key string, values ...string) (int64, error)
	// LPop removes and returns the head of the list at key.
	LPop(ctx context.Context, key string) (string, error)
	// LRange returns the list elements between start and stop inclusive.
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	// Ping checks connectivity.
	Ping(ctx context.Context) error
	// Close releases the connection.
	Close() error
}
