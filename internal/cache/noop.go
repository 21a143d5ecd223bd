package cache

import (
	"context"
	"time"
)

// Noop is a Cache that stores nothing. Reads miss and writes succeed.
type Noop struct{}

func (Noop) Get(context.Context, string, any) error { return ErrMiss }
func (Noop) Set(context.Context, string, any, time.Duration) error { return nil }
func (Noop) Delete(context.Context, ...string) error { return nil }
func (Noop) DeletePattern(context.Context, string) (int, error) { return 0, nil }
func (Noop) Exists(context.Context, string) (bool, error) { return false, nil }
func (Noop) Expire(context.Context, string, time.Duration) (bool, error) { return false, nil }
func (Noop) TTL(context.Context, string) (time.Duration, error) { return 0, ErrMiss }
func (Noop) Incr(context.Context, string) (int64, error) { return 0, nil }
func (Noop) Decr(context.Context, string) (int64, error) { return 0, nil }
func (Noop) LPush(context.Context, string, ...string) (int64, error) { return 0, nil }
func (Noop) LPop(context.Context, string) (string, error) { return "", ErrMiss }
func (Noop) LRange(context.Context, string, int64, int64) ([]string, error) { return nil, nil }
func (Noop) Ping(context.Context) error { return nil }
func (Noop) Close() error { return nil }
