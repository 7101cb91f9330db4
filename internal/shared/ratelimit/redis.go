package ratelimit

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"companion-backend/internal/shared/telemetry"
)

// fixedWindow increments the counter of KEYS[1] unless it reached the limit.
// It returns {allowed, ttl_seconds}.
var fixedWindow = goredis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])

	local current = tonumber(redis.call('GET', key) or '0')
	local ttl = redis.call('TTL', key)
	if ttl < 0 then
		ttl = window
	end

	if current < limit then
		redis.call('INCR', key)
		if current == 0 then
			redis.call('EXPIRE', key, window)
		end
		return {1, ttl}
	end
	return {0, ttl}
`)

// Redis is a fixed-window limiter shared by every instance behind one Redis.
// Redis failures let the request through.
type Redis struct {
	client *goredis.Client
	prefix string
}

// NewRedis parses a redis:// URL and returns a limiter using it.
func NewRedis(redisURL string) (*Redis, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Redis{client: goredis.NewClient(opts), prefix: "ratelimit:"}, nil
}

// Ping verifies connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) Allow(ctx context.Context, key string, rule Rule) (bool, time.Duration) {
	window := rule.Window()
	if rule.Burst <= 0 || window <= 0 {
		return true, 0
	}
	seconds := int(window.Seconds())
	if seconds < 1 {
		seconds = 1
	}

	result, err := fixedWindow.Run(ctx, r.client, []string{r.prefix + key}, rule.Burst, seconds).Int64Slice()
	if err != nil {
		telemetry.Warn("ratelimit.redis_failed", map[string]any{"error": err.Error()})
		return true, 0
	}
	if len(result) < 2 {
		telemetry.Warn("ratelimit.redis_failed", map[string]any{"error": "unexpected script result"})
		return true, 0
	}
	if result[0] == 1 {
		return true, 0
	}
	return false, time.Duration(result[1]) * time.Second
}
