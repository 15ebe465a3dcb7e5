package lock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "skills-extractor:lock:"

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis implements Locker with SET NX PX and a compare-and-delete release.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// NewRedis wraps an existing client. ttl bounds how long a crashed holder blocks others.
func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Redis{client: client, ttl: ttl, prefix: defaultPrefix}
}

// Dial parses a redis:// URL and pings the server.
func Dial(ctx context.Context, rawURL string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}

	return NewRedis(client, ttl), nil
}

// Acquire takes the lock for key or returns ErrHeld.
func (r *Redis) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	name := r.prefix + key
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, name, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", name, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHeld, key)
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, r.client, []string{name}, token).Err(); err != nil {
			return fmt.Errorf("release %s: %w", name, err)
		}
		return nil
	}, nil
}

// Ping checks the Redis connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
