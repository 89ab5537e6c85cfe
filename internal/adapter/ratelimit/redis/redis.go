// Package redis implements a fixed-window rate limiter backed by Redis.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

// The counter expiry is set on the first hit of a window only, so the window
// does not slide with later requests.
var fixedWindowScript = goredis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return current
`)

// Limiter allows at most limit requests per key within each window.
type Limiter struct {
	client goredis.Scripter
	limit  int64
	window time.Duration
}

func NewLimiter(client goredis.Scripter, limit int, window time.Duration) *Limiter {
	return &Limiter{
		client: client,
		limit:  int64(limit),
		window: window,
	}
}

// Allow counts one request for key and reports whether it fits in the
// current window.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	const op = "adapter.ratelimit.redis.Limiter.Allow"

	count, err := fixedWindowScript.Run(ctx, l.client, []string{keyPrefix + key}, l.window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("%s: failed to run rate limit script: %w", op, err)
	}

	return count <= l.limit, nil
}

// Window is the length of a rate limiting window.
func (l *Limiter) Window() time.Duration {
	return l.window
}
