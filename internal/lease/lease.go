// Package lease keeps two collectors or loaders from running against the
// same bucket or warehouse at once.
package lease

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"nathanbeddoewebdev/fleetmetrics/internal/domain"
)

const (
	keyPrefix  = "fleetmetrics:lease:"
	DefaultTTL = 30 * time.Minute
)

// Only the holder's token may delete the key.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

// Locker hands out named leases.
type Locker interface {
	Acquire(ctx context.Context, name string) (Lease, error)
	Close() error
}

// Lease is a held lock.
type Lease interface {
	Release(ctx context.Context) error
}

// Noop grants every lease. Used when no Redis address is configured.
type Noop struct{}

func (Noop) Acquire(context.Context, string) (Lease, error) { return noopLease{}, nil }
func (Noop) Close() error { return nil }

type noopLease struct{}

func (noopLease) Release(context.Context) error { return nil }

type redisClient interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
	Close() error
}

// Redis implements Locker with SET NX and an owner token.
type Redis struct {
	client redisClient
	ttl    time.Duration
	owner  string
	log    *zap.Logger
}

// New returns a Redis locker, or Noop when addr is empty.
func New(ctx context.Context, addr string, ttl time.Duration, log *zap.Logger) (Locker, error) {
	if addr == "" {
		return Noop{}, nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("lease: connect %s: %w", addr, err)
	}
	return newRedis(client, ttl, log), nil
}

func newRedis(client redisClient, ttl time.Duration, log *zap.Logger) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	host, _ := os.Hostname()
	return &Redis{client: client, ttl: ttl, owner: host, log: log}
}

// Acquire takes the named lease or returns domain.ErrLeaseHeld.
func (r *Redis) Acquire(ctx context.Context, name string) (Lease, error) {
	key := keyPrefix + name
	token := r.owner + "/" + uuid.NewString()

	ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("lease: acquire %s: %w", name, err)
	}
	if !ok {
		holder, err := r.client.Get(ctx, key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			holder = "unknown"
		}
		return nil, fmt.Errorf("lease %s held by %s: %w", name, holder, domain.ErrLeaseHeld)
	}
	r.log.Debug("lease acquired", zap.String("lease", name), zap.Duration("ttl", r.ttl))
	return &redisLease{r: r, key: key, token: token}, nil
}

// Close closes the Redis connection.
func (r *Redis) Close() error { return r.client.Close() }

type redisLease struct {
	r     *Redis
	key   string
	token string
}

// Release deletes the key if it is still ours. A lease that already
// expired is not an error.
func (l *redisLease) Release(ctx context.Context) error {
	n, err := l.r.client.Eval(ctx, releaseScript, []string{l.key}, l.token).Int64()
	if err != nil {
		return fmt.Errorf("lease: release %s: %w", l.key, err)
	}
	if n == 0 {
		l.r.log.Warn("lease expired before release", zap.String("key", l.key))
	}
	return nil
}
