package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"watchlist/internal/logging"
)

// slidingWindowScript prunes, counts and records in one atomic step using the
// server clock so every process agrees on "now". It returns 0 when the request
// was recorded, otherwise the milliseconds until the oldest entry expires.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local window = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local member = ARGV[3]
local t = redis.call('TIME')
local now = tonumber(t[1]) * 1000 + math.floor(tonumber(t[2]) / 1000)
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) < limit then
  redis.call('ZADD', key, now, member)
  redis.call('PEXPIRE', key, window)
  return 0
end
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local wait = tonumber(oldest[2]) + window - now
if wait < 1 then
  wait = 1
end
return wait
`)

// RedisWindow enforces the sliding window across every process sharing key.
type RedisWindow struct {
	client redis.Scripter
	closer func() error
	key    string
	max    int
	size   time.Duration
	sleep  func(context.Context, time.Duration) error
	logger *slog.Logger
}

var _ Limiter = (*RedisWindow)(nil)

// NewRedisWindow builds a shared limiter on an existing client.
func NewRedisWindow(client redis.Scripter, key string, max int, size time.Duration, logger *slog.Logger) (*RedisWindow, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("redis key required")
	}
	if max <= 0 {
		max = DefaultMaxRequests
	}
	if size <= 0 {
		size = DefaultWindowSize
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &RedisWindow{
		client: client,
		key:    key,
		max:    max,
		size:   size,
		sleep:  SleepWithContext,
		logger: logger,
	}, nil
}

// OpenRedisWindow connects to the Redis server at rawURL and verifies it
// answers before returning the limiter. Close releases the connection pool.
func OpenRedisWindow(ctx context.Context, rawURL, key string, max int, size time.Duration, logger *slog.Logger) (*RedisWindow, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	window, err := NewRedisWindow(client, key, max, size, logger)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	window.closer = client.Close
	return window, nil
}

// Acquire blocks until the shared window has room, then records the request.
// Unlike Window, a Redis failure is reported as an error.
func (r *RedisWindow) Acquire(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		waitMS, err := slidingWindowScript.Run(ctx, r.client, []string{r.key},
			r.size.Milliseconds(), r.max, uuid.NewString()).Int64()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("redis rate window: %w", err)
		}
		if waitMS <= 0 {
			return nil
		}
		wait := time.Duration(waitMS) * time.Millisecond
		r.logger.Debug("shared catalog rate limit reached, waiting",
			logging.Duration("wait", wait),
			logging.String("key", r.key))
		if err := r.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Close releases the client when the window opened it.
func (r *RedisWindow) Close() error {
	if r == nil || r.closer == nil {
		return nil
	}
	return r.closer()
}
