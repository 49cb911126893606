// Package redislock serialises catalog mutations across processes with a
// Redis SET NX lease.
package redislock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"tutorcore/internal/core"
)

var _ core.Locker = (*Locker)(nil)

// releaseScript deletes the key only while it still holds our token.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`

const (
	defaultPrefix = "tutorcore:lock:"
	defaultTTL    = 10 * time.Second
	defaultRetry  = 25 * time.Millisecond
)

// Client is the subset of the go-redis API the locker needs.
type Client interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *goredis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *goredis.Cmd
}

// Locker implements core.Locker on Redis.
type Locker struct {
	client Client
	prefix string
	ttl    time.Duration
	retry  time.Duration
	token  func() string
}

// Option customises a Locker.
type Option func(*Locker)

// WithTTL sets the lease length. A holder that crashes blocks others for at
// most this long.
func WithTTL(ttl time.Duration) Option {
	return func(l *Locker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithRetryInterval sets how often a waiting caller polls the key.
func WithRetryInterval(d time.Duration) Option {
	return func(l *Locker) {
		if d > 0 {
			l.retry = d
		}
	}
}

// WithPrefix namespaces lock keys.
func WithPrefix(prefix string) Option {
	return func(l *Locker) { l.prefix = prefix }
}

// New wraps client.
func New(client Client, opts ...Option) *Locker {
	l := &Locker{
		client: client,
		prefix: defaultPrefix,
		ttl:    defaultTTL,
		retry:  defaultRetry,
		token:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr string, opts ...Option) (*Locker, *goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(rdb, opts...), rdb, nil
}

// Lock implements core.Locker, polling until the lease is acquired or ctx ends.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := l.token()
	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("acquire lock %q: %w", key, ctxErr)
			}
			return nil, fmt.Errorf("acquire lock %q: %w", key, err)
		}
		if ok {
			break
		}
		timer := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("acquire lock %q: %w", key, ctx.Err())
		case <-timer.C:
		}
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			// An unreleased lease expires after ttl.
			_ = l.client.Eval(rctx, releaseScript, []string{redisKey}, token).Err()
		})
	}, nil
}
