// Package redisx holds the Redis helpers shared by background jobs.
package redisx

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// MonitorLeaseKey guards the low stock sweep so one replica runs it per tick.
const MonitorLeaseKey = "ec-fulfillment:lease:stock-monitor"

// releaseScript deletes the key only if this holder still owns it.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

type leaseClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Lease is a best-effort distributed mutex built on SET NX with a TTL.
type Lease struct {
	client leaseClient
	key    string
	owner  string
	ttl    time.Duration
}

func NewLease(client leaseClient, key string, ttl time.Duration) *Lease {
	return &Lease{
		client: client,
		key:    key,
		owner:  uuid.New().String(),
		ttl:    ttl,
	}
}

// Acquire reports whether this process now holds the lease.
func (l *Lease) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.owner, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lease %s: %w", l.key, err)
	}
	return ok, nil
}

// Release gives the lease up if it is still ours. An expired lease taken by
// another holder is left alone.
func (l *Lease) Release(ctx context.Context) error {
	if err := l.client.Eval(ctx, releaseScript, []string{l.key}, l.owner).Err(); err != nil {
		return fmt.Errorf("release lease %s: %w", l.key, err)
	}
	return nil
}

// Close releases the underlying client when it owns a connection pool. Call
// it after the final Release.
func (l *Lease) Close() error {
	if c, ok := l.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
