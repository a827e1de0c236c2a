package locking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"kidtasks/internal/metrics"
)

// ErrLockTimeout is returned when a Redis lock is not acquired before the deadline.
var ErrLockTimeout = errors.New("locking: timed out waiting for lock")

// KeyPrefix namespaces lock keys in Redis.
const KeyPrefix = "kidtasks:lock:"

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisConfig configures a RedisLocker.
type RedisConfig struct {
	// TTL is the lease; a crashed holder frees the key after it.
	TTL time.Duration

	// Wait bounds how long Lock retries before giving up.
	Wait time.Duration

	// RetryInterval is the pause between acquisition attempts.
	RetryInterval time.Duration

	// Logger receives lease and release warnings; slog.Default() when nil.
	Logger *slog.Logger
}

// DefaultRedisConfig returns sensible lease settings.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		TTL:           10 * time.Second,
		Wait:          5 * time.Second,
		RetryInterval: 50 * time.Millisecond,
	}
}

// RedisLocker is a lease lock shared by every process using the same Redis.
//
// Leases are not renewed. A holder that runs longer than TTL loses
// exclusivity; its release then finds another token (or none), leaves the key
// alone, logs a warning and counts metrics.LockLeasesLost. Keep TTL well above
// the slowest reset or completion.
type RedisLocker struct {
	client *redis.Client
	config RedisConfig
}

// NewRedisLocker creates a locker from a redis:// URL and checks connectivity.
func NewRedisLocker(ctx context.Context, url string, cfg RedisConfig) (*RedisLocker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewRedisLockerFromClient(client, cfg), nil
}

// NewRedisLockerFromClient wraps an existing client.
func NewRedisLockerFromClient(client *redis.Client, cfg RedisConfig) *RedisLocker {
	def := DefaultRedisConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.Wait <= 0 {
		cfg.Wait = def.Wait
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = def.RetryInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &RedisLocker{client: client, config: cfg}
}

// Lock acquires key with SET NX and a lease, retrying until Wait elapses.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	fullKey := KeyPrefix + key

	ctx, cancel := context.WithTimeout(ctx, l.config.Wait)
	defer cancel()

	ticker := time.NewTicker(l.config.RetryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, fullKey, token, l.config.TTL).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			acquired := time.Now()
			return func() { l.release(key, fullKey, token, acquired) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) release(key, fullKey, token string, acquired time.Time) {
	// Background context: release must run even if the request was cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), l.config.RetryInterval*20)
	defer cancel()

	deleted, err := releaseScript.Run(ctx, l.client, []string{fullKey}, token).Int()
	if err != nil {
		l.config.Logger.Warn("failed to release lock", slog.String("key", key), slog.Any("error", err))
		return
	}
	if deleted == 0 {
		metrics.LockLeasesLost.Inc()
		l.config.Logger.Warn("lock lease expired before release",
			slog.String("key", key),
			slog.Duration("held", time.Since(acquired)),
			slog.Duration("ttl", l.config.TTL))
	}
}

// Close closes the Redis client.
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
